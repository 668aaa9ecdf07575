package pipeline

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/executor"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/generator"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/query"
)

// Kind is a machine-readable failure category.
type Kind string

const (
	InvalidQuestion  Kind = "invalid_question"
	ReadOnlyRefusal  Kind = "read_only_refusal"
	CannotAnswer     Kind = "cannot_answer"
	BackendRefused   Kind = "backend_refused"
	ExtractionFailed Kind = "extraction_failed"
	ValidationFailed Kind = "validation_failed"
	GenerationFailed Kind = "generation_failed"
	PoolExhausted    Kind = "pool_exhausted"
	QueryFailed      Kind = "query_failed"
)

var hints = map[Kind]string{
	InvalidQuestion:  "Ask a question between 3 and 1000 characters long.",
	ReadOnlyRefusal:  "Only questions that read inventory data are supported. Rephrase it as a lookup.",
	CannotAnswer:     "The inventory schema has no data for this question. Check the schema for what is available.",
	BackendRefused:   "The completion backend declined the request. Rephrase the question.",
	ExtractionFailed: "The model did not return a usable query. Try rephrasing the question.",
	ValidationFailed: "The statement was rejected by the read-only validator.",
	GenerationFailed: "Check the backend API key and the candidate model list (stockmaster models).",
	PoolExhausted:    "The inventory database is busy. Retry shortly or raise database.max_open_conns.",
	QueryFailed:      "The database rejected the query. Compare the live schema with stockmaster schema check.",
}

// HTTPStatus maps the kind to a response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case InvalidQuestion, ReadOnlyRefusal, CannotAnswer, BackendRefused, ExtractionFailed, ValidationFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Hint returns a short remediation for the kind.
func (k Kind) Hint() string { return hints[k] }

// Error is the failure of one pipeline run. It wraps the first stage error.
// Reason is the stage's own reason code (for example forbidden_pattern) and
// Rule names the validator rule that matched, when there is one.
type Error struct {
	Kind    Kind
	Reason  string
	Rule    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap creates an Error of kind around err.
func Wrap(kind Kind, msg string, err error) *Error { return &Error{Kind: kind, Message: msg, Err: err} }

func (e *Error) withReason(reason, rule string) *Error {
	e.Reason = reason
	e.Rule = rule
	return e
}

// Context returns the machine-readable fields of the failure as reported to
// API and MCP clients.
func (e *Error) Context() map[string]any {
	ctx := map[string]any{
		"kind": string(e.Kind),
		"hint": e.Kind.Hint(),
	}
	if e.Reason != "" {
		ctx["reason"] = e.Reason
	}
	if e.Rule != "" {
		ctx["rule"] = e.Rule
	}
	return ctx
}

// KindOf returns the kind of err, or the empty string when err is not a
// pipeline error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// classify converts a stage error into a pipeline Error.
func classify(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}

	var ge *generator.GenerationError
	if errors.As(err, &ge) {
		return classifyGeneration(ge, err).withReason(string(ge.Reason), "")
	}

	var xe *query.ExtractionError
	if errors.As(err, &xe) {
		return classifyExtraction(xe, err).withReason(string(xe.Reason), "")
	}

	var ve *query.ValidationError
	if errors.As(err, &ve) {
		return classifyValidation(ve, err).withReason(string(ve.Reason), ve.Rule)
	}

	var ee *executor.ExecutionError
	if errors.As(err, &ee) {
		rule := ""
		if ee.ReadOnlyViolation {
			rule = "read_only_violation"
		}
		return classifyExecution(ee, err).withReason(string(ee.Kind), rule)
	}

	return Wrap(QueryFailed, err.Error(), err)
}

func classifyGeneration(ge *generator.GenerationError, err error) *Error {
	switch ge.Reason {
	case generator.Refused:
		return Wrap(BackendRefused, "the completion backend refused to answer", err)
	case generator.Unauthorized:
		return Wrap(GenerationFailed, "the completion backend rejected the credentials", err)
	case generator.NoModels:
		return Wrap(GenerationFailed, "no candidate models are configured", err)
	default:
		return Wrap(GenerationFailed, "no model produced a completion", err)
	}
}

func classifyExtraction(xe *query.ExtractionError, err error) *Error {
	switch xe.Reason {
	case query.ExtractReadOnlyRefusal:
		return readOnlyRefusal()
	case query.ExtractCannotAnswer:
		return cannotAnswer()
	case query.ExtractEmpty:
		return Wrap(ExtractionFailed, "the completion was empty", err)
	case query.ExtractNoSelect:
		return Wrap(ExtractionFailed, "the completion contained no SELECT statement", err)
	default:
		return Wrap(ExtractionFailed, "the completion contained an incomplete statement", err)
	}
}

func classifyValidation(ve *query.ValidationError, err error) *Error {
	switch ve.Reason {
	case query.NotASelect:
		return Wrap(ValidationFailed, "only SELECT queries are allowed", err)
	case query.ForbiddenKeyword:
		return Wrap(ValidationFailed, fmt.Sprintf("forbidden keyword %s", ve.Rule), err)
	default:
		return Wrap(ValidationFailed, fmt.Sprintf("forbidden pattern (%s)", ve.Rule), err)
	}
}

func classifyExecution(ee *executor.ExecutionError, err error) *Error {
	switch ee.Kind {
	case executor.PoolExhausted:
		return Wrap(PoolExhausted, ee.Message, err)
	case executor.NotValidated:
		return Wrap(ValidationFailed, ee.Message, err)
	default:
		if ee.ReadOnlyViolation {
			return Wrap(QueryFailed, "the database refused a write inside the read-only transaction", err)
		}
		return Wrap(QueryFailed, ee.Message, err)
	}
}

func readOnlyRefusal() *Error {
	return &Error{Kind: ReadOnlyRefusal, Reason: string(query.ExtractReadOnlyRefusal), Message: "I can only read inventory data; changes to the database are not allowed"}
}

func cannotAnswer() *Error {
	return &Error{Kind: CannotAnswer, Reason: string(query.ExtractCannotAnswer), Message: "this question cannot be answered from the inventory data"}
}
