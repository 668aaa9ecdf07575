package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxResponseBytes = 4 << 20

// apiErrorBody covers the error envelopes of both supported backends:
// {"error":{"code":404,"message":"...","status":"NOT_FOUND"}} and
// {"error":{"message":"...","type":"...","code":"model_not_found"}}.
type apiErrorBody struct {
	Error struct {
		Message string          `json:"message"`
		Status  string          `json:"status"`
		Type    string          `json:"type"`
		Code    json.RawMessage `json:"code"`
	} `json:"error"`
}

// doJSON sends in as JSON (nil for GET) and decodes a 2xx body into out.
// Non-2xx responses become a classified *Error.
func doJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string,
	in, out any, provider, model string) error {

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", provider, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", provider, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return transportError(provider, model, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(provider, model, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorMessage(data)
		kind := Classify(resp.StatusCode, msg)
		if resp.StatusCode >= 500 && kind != KindUnavailable {
			kind = KindTransport
		}
		return &Error{Kind: kind, Provider: provider, Model: model, StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindTransport, Provider: provider, Model: model, StatusCode: resp.StatusCode,
			Message: "malformed response body", Err: err}
	}
	return nil
}

func errorMessage(data []byte) string {
	var eb apiErrorBody
	if err := json.Unmarshal(data, &eb); err == nil && eb.Error.Message != "" {
		msg := eb.Error.Message
		if eb.Error.Status != "" {
			msg = eb.Error.Status + ": " + msg
		}
		if code := strings.Trim(string(eb.Error.Code), `"`); code != "" && eb.Error.Status == "" {
			msg = code + ": " + msg
		}
		return firstLine(msg)
	}
	return firstLine(strings.TrimSpace(string(data)))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
