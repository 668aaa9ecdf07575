// Package generator asks a completion backend for a SQL candidate. It walks an
// ordered list of models, retrying each with exponential backoff and moving to
// the next model as soon as one is reported unavailable.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/completion"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/query"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/schema"
)

const (
	DefaultBackoff     = 500 * time.Millisecond
	MaxBackoff         = 10 * time.Second
	MaxRetriesPerModel = 10
	DefaultCallTimeout = 30 * time.Second
)

// CompletionKind tags what a successful completion contained.
type CompletionKind string

const (
	KindSQL          CompletionKind = "sql"
	KindRefused      CompletionKind = "refused"
	KindUnanswerable CompletionKind = "unanswerable"
)

// Request is one question to turn into SQL.
type Request struct {
	Question        string
	Models          []string
	RetriesPerModel int
}

// RawCompletion is the untouched text a model returned.
type RawCompletion struct {
	Text     string
	Model    string
	Kind     CompletionKind
	Attempts int
}

// Reason explains why generation failed.
type Reason string

const (
	NoModels           Reason = "no_models"
	AllModelsExhausted Reason = "all_models_exhausted"
	Refused            Reason = "refused"
	Unauthorized       Reason = "unauthorized"
)

// GenerationError is returned when no completion could be obtained.
type GenerationError struct {
	Reason   Reason
	Model    string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	switch e.Reason {
	case NoModels:
		return "generate sql: no candidate models configured"
	case AllModelsExhausted:
		return fmt.Sprintf("generate sql: all models exhausted after %d attempts: %v", e.Attempts, e.Err)
	default:
		return fmt.Sprintf("generate sql: model %s: %s: %v", e.Model, e.Reason, e.Err)
	}
}

func (e *GenerationError) Unwrap() error { return e.Err }

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a Generator.
type Options struct {
	Provider    completion.Provider
	Descriptor  *schema.Descriptor
	Dialect     string
	Sampling    completion.Sampling
	Backoff     time.Duration
	CallTimeout time.Duration
	Logger      *slog.Logger
	Sleep       SleepFunc
}

// Generator turns questions into raw completions. It holds no per-request
// state and is safe for concurrent use.
type Generator struct {
	provider    completion.Provider
	descriptor  *schema.Descriptor
	dialect     string
	sampling    completion.Sampling
	backoff     time.Duration
	callTimeout time.Duration
	logger      *slog.Logger
	sleep       SleepFunc
}

// New creates a Generator, filling unset options with defaults.
func New(opts Options) *Generator {
	g := &Generator{
		provider:    opts.Provider,
		descriptor:  opts.Descriptor,
		dialect:     opts.Dialect,
		sampling:    opts.Sampling,
		backoff:     opts.Backoff,
		callTimeout: opts.CallTimeout,
		logger:      opts.Logger,
		sleep:       opts.Sleep,
	}
	if g.descriptor == nil {
		g.descriptor = schema.Inventory()
	}
	if g.dialect == "" {
		g.dialect = schema.DialectName("mysql")
	}
	if g.sampling == (completion.Sampling{}) {
		g.sampling = completion.DefaultSampling()
	}
	if g.backoff <= 0 {
		g.backoff = DefaultBackoff
	}
	if g.callTimeout <= 0 {
		g.callTimeout = DefaultCallTimeout
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.sleep == nil {
		g.sleep = sleepContext
	}
	return g
}

// Prompt returns the full prompt sent for question.
func (g *Generator) Prompt(question string) string {
	return g.descriptor.Prompt(g.dialect, question)
}

// Generate obtains one completion for req.Question.
func (g *Generator) Generate(ctx context.Context, req Request) (RawCompletion, error) {
	if len(req.Models) == 0 {
		return RawCompletion{}, &GenerationError{Reason: NoModels}
	}
	retries := min(max(req.RetriesPerModel, 0), MaxRetriesPerModel)

	prompt := g.Prompt(req.Question)
	total := 0
	var lastErr error

	for _, model := range req.Models {
		for attempt := 1; attempt <= retries+1; attempt++ {
			if attempt > 1 {
				if err := g.sleep(ctx, g.delay(attempt-1)); err != nil {
					return RawCompletion{}, &GenerationError{Reason: AllModelsExhausted, Model: model, Attempts: total, Err: err}
				}
			}

			total++
			text, err := g.call(ctx, model, prompt)
			if err == nil {
				return tag(text, model, total), nil
			}
			lastErr = err

			kind := completion.KindOf(err)
			g.logger.Warn("completion attempt failed",
				"model", model,
				"attempt", attempt,
				"kind", string(kind),
				"error", err,
			)

			switch kind {
			case completion.KindRefused:
				return RawCompletion{}, &GenerationError{Reason: Refused, Model: model, Attempts: total, Err: err}
			case completion.KindUnauthorized:
				return RawCompletion{}, &GenerationError{Reason: Unauthorized, Model: model, Attempts: total, Err: err}
			}
			if kind == completion.KindUnavailable {
				break
			}
			if ctx.Err() != nil {
				return RawCompletion{}, &GenerationError{Reason: AllModelsExhausted, Model: model, Attempts: total, Err: ctx.Err()}
			}
		}
	}

	return RawCompletion{}, &GenerationError{Reason: AllModelsExhausted, Attempts: total, Err: lastErr}
}

// delay is the wait before retry n (1-based): base * 2^(n-1), capped at
// MaxBackoff.
func (g *Generator) delay(n int) time.Duration {
	d := g.backoff
	for i := 1; i < n && d < MaxBackoff; i++ {
		d *= 2
	}
	return min(d, MaxBackoff)
}

func (g *Generator) call(ctx context.Context, model, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()
	return g.provider.Complete(ctx, completion.Request{
		Model:    model,
		Prompt:   prompt,
		Sampling: g.sampling,
	})
}

func tag(text, model string, attempts int) RawCompletion {
	rc := RawCompletion{Text: text, Model: model, Kind: KindSQL, Attempts: attempts}
	if reason, ok := query.IsSentinel(text); ok {
		switch reason {
		case query.ExtractReadOnlyRefusal:
			rc.Kind = KindRefused
		case query.ExtractCannotAnswer:
			rc.Kind = KindUnanswerable
		}
	}
	return rc
}

// CandidateList puts primary first followed by fallbacks, dropping blanks and
// duplicates.
func CandidateList(primary string, fallbacks ...string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range append([]string{primary}, fallbacks...) {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// IsTerminal reports whether err should not be retried by a caller either.
func IsTerminal(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge) && (ge.Reason == Refused || ge.Reason == Unauthorized)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
