package completion

import (
	"context"
	"net/http"
	"strings"
)

// DefaultGeminiBaseURL is the Generative Language REST endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini calls Google's generateContent API.
type Gemini struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewGemini returns a Gemini provider. An empty baseURL selects the public
// endpoint.
func NewGemini(baseURL, apiKey string, client *http.Client) *Gemini {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Gemini{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client}
}

func (g *Gemini) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		TopP            float64 `json:"topP,omitempty"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Finish reasons that mean the backend declined to answer.
var geminiRefusals = map[string]bool{
	"SAFETY":             true,
	"RECITATION":         true,
	"PROHIBITED_CONTENT": true,
	"BLOCKLIST":          true,
	"SPII":               true,
}

// Complete sends the prompt as a single user turn.
func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	var body geminiRequest
	body.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}}
	body.GenerationConfig.Temperature = req.Sampling.Temperature
	body.GenerationConfig.TopP = req.Sampling.TopP
	body.GenerationConfig.MaxOutputTokens = req.Sampling.MaxTokens

	var resp geminiResponse
	url := g.baseURL + "/" + geminiModelPath(req.Model) + ":generateContent"
	if err := doJSON(ctx, g.client, http.MethodPost, url, g.headers(), body, &resp, g.Name(), req.Model); err != nil {
		return "", err
	}

	if reason := resp.PromptFeedback.BlockReason; reason != "" {
		return "", &Error{Kind: KindRefused, Provider: g.Name(), Model: req.Model, Message: "prompt blocked: " + reason}
	}
	if len(resp.Candidates) == 0 {
		return "", &Error{Kind: KindTransport, Provider: g.Name(), Model: req.Model, Message: "no candidates returned"}
	}

	cand := resp.Candidates[0]
	if geminiRefusals[cand.FinishReason] {
		return "", &Error{Kind: KindRefused, Provider: g.Name(), Model: req.Model, Message: "finish reason " + cand.FinishReason}
	}

	var text strings.Builder
	for _, p := range cand.Content.Parts {
		text.WriteString(p.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", &Error{Kind: KindTransport, Provider: g.Name(), Model: req.Model, Message: "empty completion"}
	}
	return text.String(), nil
}

// ListModels returns models that support generateContent, without the
// "models/" prefix.
func (g *Gemini) ListModels(ctx context.Context) ([]string, error) {
	var resp struct {
		Models []struct {
			Name                       string   `json:"name"`
			SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
		} `json:"models"`
	}
	if err := doJSON(ctx, g.client, http.MethodGet, g.baseURL+"/models?pageSize=1000", g.headers(), nil, &resp, g.Name(), ""); err != nil {
		return nil, err
	}

	var names []string
	for _, m := range resp.Models {
		for _, method := range m.SupportedGenerationMethods {
			if method == "generateContent" {
				names = append(names, strings.TrimPrefix(m.Name, "models/"))
				break
			}
		}
	}
	return names, nil
}

func (g *Gemini) headers() map[string]string {
	return map[string]string{"x-goog-api-key": g.apiKey}
}

func geminiModelPath(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}
