// Package format turns query results into a short natural-language answer.
package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const summaryLimit = 10

// Answer is the rendered reply for one question.
type Answer struct {
	Text     string `json:"answer"`
	Summary  string `json:"summary,omitempty"`
	RowCount int    `json:"row_count"`
}

// Format describes rows (in column order) as a reply to question.
func Format(question string, columns []string, rows []map[string]any) Answer {
	if len(rows) == 0 {
		return Answer{Text: "No data found for your query."}
	}

	q := strings.ToLower(question)
	ans := Answer{RowCount: len(rows)}

	switch {
	case len(rows) == 1 && len(columns) == 1:
		col := columns[0]
		v := Value(rows[0][col], col)
		hint := q + " " + strings.ToLower(col)
		switch {
		case containsAny(hint, "stock", "quantity", "available"):
			ans.Text = fmt.Sprintf("The available stock is %s units.", v)
		case containsAny(hint, "valuation", "value", "cost"):
			ans.Text = fmt.Sprintf("The total valuation is %s.", v)
		case containsAny(hint, "count", "how many"):
			ans.Text = fmt.Sprintf("The count is %s.", v)
		default:
			ans.Text = fmt.Sprintf("The result is %s.", v)
		}
		return ans

	case len(rows) == 1:
		if col, ok := countColumn(columns); ok {
			ans.Text = fmt.Sprintf("Found %v items.", display(rows[0][col]))
			return ans
		}
		ans.Text = "Found 1 result:"

	default:
		ans.Text = fmt.Sprintf("Found %d results:", len(rows))
	}

	if len(rows) > 1 {
		ans.Summary = summarize(columns, rows)
	}
	return ans
}

func summarize(columns []string, rows []map[string]any) string {
	var b strings.Builder
	shown := rows
	if len(rows) > summaryLimit {
		fmt.Fprintf(&b, "Showing first %d of %d results:\n", summaryLimit, len(rows))
		shown = rows[:summaryLimit]
	}
	for i, row := range shown {
		parts := make([]string, len(columns))
		for j, col := range columns {
			parts[j] = ColumnName(col) + ": " + Value(row[col], col)
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.Join(parts, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func countColumn(columns []string) (string, bool) {
	for _, c := range columns {
		if containsAny(strings.ToLower(c), "count", "total") {
			return c, true
		}
	}
	return "", false
}

// Value renders v for display in column col: currency for value, cost and
// price columns, grouped digits for quantities, short dates, N/A for NULL.
func Value(v any, col string) string {
	if v == nil {
		return "N/A"
	}
	if t, ok := v.(time.Time); ok {
		return t.Format("Jan 2, 2006")
	}

	lower := strings.ToLower(col)
	n, isNum := toFloat(v)
	printer := message.NewPrinter(language.English)
	switch {
	case isNum && containsAny(lower, "value", "cost", "price"):
		if n < 0 {
			return printer.Sprintf("-$%.2f", -n)
		}
		return printer.Sprintf("$%.2f", n)
	case isNum && containsAny(lower, "qty", "quantity", "stock"):
		if n == float64(int64(n)) {
			return printer.Sprintf("%d", int64(n))
		}
		return printer.Sprintf("%.2f", n)
	}
	return display(v)
}

// ColumnName turns snake_case into Title Case.
func ColumnName(col string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(col, "_", " "))
}

func display(v any) string {
	switch x := v.(type) {
	case nil:
		return "N/A"
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format("Jan 2, 2006")
	}
	return fmt.Sprint(v)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case []byte:
		return toFloat(string(x))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

var aggregateSelect = regexp.MustCompile(`(?i)^SELECT\s+(SUM|COUNT|AVG|MIN|MAX|COALESCE|ROUND)\s*\(`)
var groupBy = regexp.MustCompile(`(?i)\bGROUP\s+BY\b`)

// NormalizeAggregate makes a single-column aggregate read as zero when the
// database returned no row or a NULL value. Other results are returned
// unchanged.
func NormalizeAggregate(sqlText string, columns []string, rows []map[string]any) []map[string]any {
	if len(columns) != 1 || !aggregateSelect.MatchString(strings.TrimSpace(sqlText)) || groupBy.MatchString(sqlText) {
		return rows
	}
	col := columns[0]
	switch {
	case len(rows) == 0:
		return []map[string]any{{col: int64(0)}}
	case len(rows) == 1 && rows[0][col] == nil:
		rows[0][col] = int64(0)
	}
	return rows
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
