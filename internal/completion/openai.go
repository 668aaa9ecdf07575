package completion

import (
	"context"
	"net/http"
	"sort"
	"strings"
)

// DefaultOpenAIBaseURL is the OpenAI API root. Any compatible server
// (vLLM, Ollama, LocalAI, gateways) can be used through Config.BaseURL.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAI calls an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewOpenAI returns an OpenAI-compatible provider.
func NewOpenAI(baseURL, apiKey string, client *http.Client) *OpenAI {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenAI{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client}
}

func (o *OpenAI) Name() string { return "openai" }

type chatMessage struct {
	Role    string  `json:"role"`
	Content string  `json:"content"`
	Refusal *string `json:"refusal,omitempty"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// Complete sends the prompt as a single user message.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	body := chatRequest{
		Model:       req.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Sampling.Temperature,
		TopP:        req.Sampling.TopP,
		MaxTokens:   req.Sampling.MaxTokens,
	}

	var resp chatResponse
	if err := doJSON(ctx, o.client, http.MethodPost, o.baseURL+"/chat/completions", o.headers(), body, &resp, o.Name(), req.Model); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindTransport, Provider: o.Name(), Model: req.Model, Message: "no choices returned"}
	}

	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", &Error{Kind: KindRefused, Provider: o.Name(), Model: req.Model, Message: "content filtered"}
	}
	if r := choice.Message.Refusal; r != nil && *r != "" {
		return "", &Error{Kind: KindRefused, Provider: o.Name(), Model: req.Model, Message: firstLine(*r)}
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return "", &Error{Kind: KindTransport, Provider: o.Name(), Model: req.Model, Message: "empty completion"}
	}
	return choice.Message.Content, nil
}

// ListModels returns the model IDs visible to the API key, sorted.
func (o *OpenAI) ListModels(ctx context.Context) ([]string, error) {
	var resp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := doJSON(ctx, o.client, http.MethodGet, o.baseURL+"/models", o.headers(), nil, &resp, o.Name(), ""); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Data))
	for _, m := range resp.Data {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (o *OpenAI) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + o.apiKey}
}
