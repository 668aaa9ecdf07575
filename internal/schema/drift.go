package schema

import "strings"

// Drift problems.
const (
	MissingTable  = "missing_table"
	MissingColumn = "missing_column"
)

// DriftIssue is one difference between the descriptor and a live database.
type DriftIssue struct {
	Table   string `json:"table"`
	Column  string `json:"column,omitempty"`
	Problem string `json:"problem"`
}

// Drift compares the descriptor with the live table/column listing and
// reports every descriptor table or column the database lacks. Extra live
// tables and columns are ignored. Names compare case-insensitively.
func (d *Descriptor) Drift(live map[string][]string) []DriftIssue {
	liveCols := make(map[string]map[string]bool, len(live))
	for table, cols := range live {
		set := make(map[string]bool, len(cols))
		for _, c := range cols {
			set[strings.ToLower(c)] = true
		}
		liveCols[strings.ToLower(table)] = set
	}

	var issues []DriftIssue
	for _, t := range d.tables {
		cols, ok := liveCols[strings.ToLower(t.Name)]
		if !ok {
			issues = append(issues, DriftIssue{Table: t.Name, Problem: MissingTable})
			continue
		}
		for _, c := range t.Columns {
			if !cols[strings.ToLower(c.Name)] {
				issues = append(issues, DriftIssue{Table: t.Name, Column: c.Name, Problem: MissingColumn})
			}
		}
	}
	return issues
}
