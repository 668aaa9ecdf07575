package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/model"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/pipeline"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/server/middleware"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response using the standard error
// envelope. The optional ctx map provides additional context fields.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// writePipelineError maps a pipeline failure onto the error envelope with its
// kind and remediation hint.
func writePipelineError(w http.ResponseWriter, r *http.Request, start time.Time, err error) {
	kind := pipeline.KindOf(err)
	if kind == "" {
		kind = pipeline.QueryFailed
	}
	message := err.Error()
	ctx := map[string]interface{}{
		"kind": string(kind),
		"hint": kind.Hint(),
	}
	var pe *pipeline.Error
	if errors.As(err, &pe) {
		message = pe.Message
		ctx = pe.Context()
	}
	meta := newMeta(r, start)
	code := kind.HTTPStatus()
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctx,
		},
		Meta: &meta,
	})
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryInt extracts an integer query parameter, returning defaultVal if the
// parameter is missing or cannot be parsed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// clampInt constrains val to be within [min, max].
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func newMeta(r *http.Request, start time.Time) model.ResponseMeta {
	return model.ResponseMeta{
		TookMs:    float64(time.Since(start).Microseconds()) / 1000.0,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: middleware.GetRequestID(r.Context()),
	}
}

func ms(d time.Duration) *int64 {
	v := d.Milliseconds()
	return &v
}
