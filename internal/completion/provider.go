// Package completion talks to hosted text-completion backends. Each backend
// implements Provider; failures are reported as *Error with a coarse Kind so
// callers can decide whether to retry, fall over to another model or give up.
package completion

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Sampling controls generation randomness and length.
type Sampling struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// DefaultSampling favors deterministic, short completions.
func DefaultSampling() Sampling {
	return Sampling{Temperature: 0.1, TopP: 0.8, MaxTokens: 1024}
}

// Request is a single completion call.
type Request struct {
	Model    string
	Prompt   string
	Sampling Sampling
}

// Provider is a text-completion backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// ModelLister is implemented by providers that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider   string // "gemini" or "openai"
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// New builds the provider named in cfg.
func New(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("completion backend %q: api key is required", cfg.Provider)
	}
	client := cfg.HTTPClient
	if client == nil {
		// Per-call deadlines come from the caller's context.
		client = &http.Client{Timeout: 2 * time.Minute}
	}

	switch cfg.Provider {
	case "", "gemini":
		return NewGemini(cfg.BaseURL, cfg.APIKey, client), nil
	case "openai":
		return NewOpenAI(cfg.BaseURL, cfg.APIKey, client), nil
	default:
		return nil, fmt.Errorf("unsupported completion backend %q (available: gemini, openai)", cfg.Provider)
	}
}
