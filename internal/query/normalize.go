package query

import (
	"fmt"
	"regexp"
	"strings"
)

// Sentinel completions the model is instructed to emit instead of SQL.
const (
	ReadOnlySentinel     = "READ_ONLY_ERROR"
	CannotAnswerSentinel = "CANNOT_ANSWER"
)

// ExtractionReason identifies why a completion could not be turned into a
// candidate statement.
type ExtractionReason string

const (
	ExtractEmpty           ExtractionReason = "empty"
	ExtractNoSelect        ExtractionReason = "no_select_found"
	ExtractIncomplete      ExtractionReason = "incomplete"
	ExtractReadOnlyRefusal ExtractionReason = "read_only_refusal"
	ExtractCannotAnswer    ExtractionReason = "cannot_answer"
)

// ExtractionError is returned by Normalize.
type ExtractionError struct {
	Reason ExtractionReason
	Detail string
}

func (e *ExtractionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("extract sql: %s: %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("extract sql: %s", e.Reason)
}

var (
	// Longer tags first: alternation is leftmost-first.
	taggedFence = regexp.MustCompile("(?i)```(?:postgresql|postgres|sqlite|mysql|plsql|sql)?[ \\t]*\\r?\\n?")
	bareFence   = regexp.MustCompile("```\\r?\\n?")

	statementStart = regexp.MustCompile(`(?i)\b(SELECT|WITH)\b`)
	proseMarker    = regexp.MustCompile(`^(This|Note|Here|Explanation)\b`)
	fromClause     = regexp.MustCompile(`(?i)\bFROM\b`)
	literalSelect  = regexp.MustCompile(`(?i)^SELECT\s+(\d+(\.\d+)?|'[^']*')(\s+AS\s+\w+)?$`)
)

// IsSentinel reports which sentinel, if any, text is. Matching is exact after
// trimming and case-insensitive.
func IsSentinel(text string) (ExtractionReason, bool) {
	t := strings.TrimSpace(text)
	switch {
	case strings.EqualFold(t, ReadOnlySentinel):
		return ExtractReadOnlyRefusal, true
	case strings.EqualFold(t, CannotAnswerSentinel):
		return ExtractCannotAnswer, true
	}
	return "", false
}

// StripFences removes markdown code fences anywhere in text.
func StripFences(text string) string {
	text = taggedFence.ReplaceAllString(text, "")
	return bareFence.ReplaceAllString(text, "")
}

// Normalize isolates the SQL statement inside a raw completion. The result
// starts with SELECT or WITH, carries no trailing terminator and no leading or
// trailing commentary. Normalize is idempotent on its own output.
func Normalize(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", &ExtractionError{Reason: ExtractEmpty}
	}

	text := StripFences(raw)
	if strings.TrimSpace(text) == "" {
		return "", &ExtractionError{Reason: ExtractEmpty}
	}
	if reason, ok := IsSentinel(text); ok {
		return "", &ExtractionError{Reason: reason}
	}

	loc := statementStart.FindStringIndex(text)
	if loc == nil {
		return "", &ExtractionError{Reason: ExtractNoSelect}
	}
	text = text[loc[0]:]

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(kept) > 0 && proseMarker.MatchString(trimmed) {
			break
		}
		kept = append(kept, strings.TrimRight(line, " \t\r"))
		if strings.HasSuffix(trimmed, ";") {
			break
		}
	}

	stmt := strings.TrimRight(strings.TrimSpace(strings.Join(kept, "\n")), "; \t\r\n")
	if stmt == "" {
		return "", &ExtractionError{Reason: ExtractEmpty}
	}
	if !fromClause.MatchString(stmt) && !literalSelect.MatchString(stmt) {
		return "", &ExtractionError{Reason: ExtractIncomplete, Detail: "no FROM clause"}
	}
	return stmt, nil
}
