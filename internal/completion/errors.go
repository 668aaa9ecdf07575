package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is the coarse classification of a backend failure.
type Kind string

const (
	KindTransport    Kind = "transport"
	KindUnavailable  Kind = "unavailable"
	KindRateLimited  Kind = "rate_limited"
	KindRefused      Kind = "refused"
	KindUnauthorized Kind = "unauthorized"
)

// Error is a classified backend failure.
type Error struct {
	Kind       Kind
	Provider   string
	Model      string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", e.Provider)
	if e.Model != "" {
		fmt.Fprintf(&b, " model %s", e.Model)
	}
	fmt.Fprintf(&b, ": %s", e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Classify maps an HTTP status and provider message to a Kind. Only coarse
// fragments of the message are inspected so provider wording can change
// without breaking classification.
func Classify(status int, message string) Kind {
	switch status {
	case http.StatusNotFound:
		return KindUnavailable
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	}

	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, "not found", "not supported", "does not exist", "unknown model", "is not available"):
		return KindUnavailable
	case containsAny(lower, "quota", "rate limit", "rate_limit", "resource_exhausted", "too many requests"):
		return KindRateLimited
	case containsAny(lower, "api key not valid", "invalid api key", "incorrect api key", "permission denied", "unauthenticated"):
		return KindUnauthorized
	}
	return KindTransport
}

// KindOf extracts the Kind of err. Errors that are not *Error are transport
// failures.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindTransport
}

// transportError wraps a failed round trip.
func transportError(provider, model string, err error) *Error {
	msg := ""
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "timed out"
	}
	return &Error{Kind: KindTransport, Provider: provider, Model: model, Message: msg, Err: err}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
