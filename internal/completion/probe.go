package completion

import (
	"context"
	"time"
)

// Probe outcomes.
const (
	ProbeWorks    = "works"
	ProbeNotFound = "not_found"
	ProbeQuota    = "quota"
	ProbeError    = "error"
)

const probePrompt = "Reply with the single word OK."

// ProbeResult is the outcome of one probe call.
type ProbeResult struct {
	Model    string        `json:"model"`
	Status   string        `json:"status"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Probe sends a tiny prompt to each model in order and reports whether it
// answered.
func Probe(ctx context.Context, p Provider, models []string, timeout time.Duration) []ProbeResult {
	results := make([]ProbeResult, 0, len(models))
	for _, m := range models {
		results = append(results, probeOne(ctx, p, m, timeout))
	}
	return results
}

func probeOne(ctx context.Context, p Provider, model string, timeout time.Duration) ProbeResult {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	_, err := p.Complete(ctx, Request{
		Model:    model,
		Prompt:   probePrompt,
		Sampling: Sampling{Temperature: 0, TopP: 1, MaxTokens: 8},
	})
	res := ProbeResult{Model: model, Status: ProbeWorks, Duration: time.Since(start)}
	if err == nil {
		return res
	}

	res.Detail = err.Error()
	switch KindOf(err) {
	case KindUnavailable:
		res.Status = ProbeNotFound
	case KindRateLimited:
		res.Status = ProbeQuota
	default:
		res.Status = ProbeError
	}
	return res
}

// WorkingModels returns the models whose probe succeeded, in order.
func WorkingModels(results []ProbeResult) []string {
	var out []string
	for _, r := range results {
		if r.Status == ProbeWorks {
			out = append(out, r.Model)
		}
	}
	return out
}
