package query

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationReason is the class of rule a statement violated.
type ValidationReason string

const (
	NotASelect       ValidationReason = "not_a_select"
	ForbiddenKeyword ValidationReason = "forbidden_keyword"
	ForbiddenPattern ValidationReason = "forbidden_pattern"
)

// Pattern rule names reported in ValidationError.Rule.
const (
	RuleStackedStatement = "stacked_statement"
	RuleComment          = "comment"
	RuleFileAccess       = "file_access"
	RuleTimeDelay        = "time_delay"
)

// ValidationError is returned by Validate for the first rule a statement breaks.
type ValidationError struct {
	Reason ValidationReason
	Rule   string // pattern rule or matched keyword
}

func (e *ValidationError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("validate sql: %s: %s", e.Reason, e.Rule)
	}
	return fmt.Sprintf("validate sql: %s", e.Reason)
}

// Accepted is a statement that passed Validate. Its zero value is not a valid
// statement; only Validate produces non-zero values.
type Accepted struct {
	sql string
}

// SQL returns the accepted statement text.
func (a Accepted) SQL() string { return a.sql }

// IsZero reports whether a was not produced by Validate.
func (a Accepted) IsZero() bool { return a.sql == "" }

var selectShape = regexp.MustCompile(`^(SELECT|WITH)\b`)

// DeniedKeywords is the mutation and administration vocabulary rejected as
// whole words anywhere in a statement.
var DeniedKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "TRUNCATE", "ALTER", "CREATE",
	"REPLACE", "GRANT", "REVOKE", "EXEC", "EXECUTE", "CALL", "SET",
	"LOCK", "UNLOCK", "MERGE",
}

var deniedKeyword = regexp.MustCompile(`(?i)\b(` + strings.Join(DeniedKeywords, "|") + `)\b`)

type patternRule struct {
	rule string
	re   *regexp.Regexp
	// unquoted rules match against the statement with string literals and
	// quoted identifiers blanked out.
	unquoted bool
}

var quotedText = regexp.MustCompile(`'(?:[^']|'')*'|"(?:[^"]|"")*"|` + "`[^`]*`")

var deniedPatterns = []patternRule{
	{RuleStackedStatement, regexp.MustCompile(`;\s*\S`), false},
	{RuleComment, regexp.MustCompile(`--|/\*`), false},
	{RuleComment, regexp.MustCompile(`#`), true},
	{RuleFileAccess, regexp.MustCompile(`(?i)\bINTO\s+(OUTFILE|DUMPFILE)\b`), false},
	{RuleFileAccess, regexp.MustCompile(`(?i)\b(LOAD_FILE|pg_read_file|pg_read_binary_file|pg_ls_dir|lo_import|lo_export)\s*\(`), false},
	{RuleTimeDelay, regexp.MustCompile(`(?i)\b(SLEEP|BENCHMARK|pg_sleep|pg_sleep_for|pg_sleep_until)\s*\(`), false},
	{RuleTimeDelay, regexp.MustCompile(`(?i)\bWAITFOR\s+DELAY\b|\bDBMS_(LOCK|SESSION)\.SLEEP\b`), false},
}

// Validate checks that stmt is a single read-only query. Rules run in order:
// shape, pattern denylist, keyword denylist; the first violation is returned.
func Validate(stmt string) (Accepted, error) {
	trimmed := strings.TrimSpace(stmt)
	if !selectShape.MatchString(strings.ToUpper(trimmed)) {
		return Accepted{}, &ValidationError{Reason: NotASelect}
	}

	unquoted := quotedText.ReplaceAllString(trimmed, "''")
	for _, p := range deniedPatterns {
		text := trimmed
		if p.unquoted {
			text = unquoted
		}
		if p.re.MatchString(text) {
			return Accepted{}, &ValidationError{Reason: ForbiddenPattern, Rule: p.rule}
		}
	}

	if m := deniedKeyword.FindString(trimmed); m != "" {
		return Accepted{}, &ValidationError{Reason: ForbiddenKeyword, Rule: strings.ToUpper(m)}
	}

	return Accepted{sql: trimmed}, nil
}

// Prepare runs Normalize followed by Validate.
func Prepare(raw string) (Accepted, error) {
	stmt, err := Normalize(raw)
	if err != nil {
		return Accepted{}, err
	}
	return Validate(stmt)
}
