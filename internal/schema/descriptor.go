// Package schema holds the fixed description of the inventory tables that the
// model is allowed to query, the instructions sent along with it, and helpers
// to create or verify those tables in a live database.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/query"
)

// Column describes a single column of a descriptor table. Type is the MySQL
// spelling shown to the model; other dialects are derived from it.
type Column struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Nullable   bool     `json:"nullable"`
	PrimaryKey bool     `json:"primary_key,omitempty"`
	References string   `json:"references,omitempty"` // "table(column)"
	Enum       []string `json:"enum,omitempty"`
}

// Table is an ordered list of columns.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Descriptor is an immutable, versioned set of tables. Build one with New;
// accessors return copies.
type Descriptor struct {
	version  string
	tables   []Table
	index    map[string]int
	rendered string
}

// New validates tables and returns a Descriptor. Table and column names must
// be safe identifiers, unique, and every reference must point at a declared
// table and column.
func New(version string, tables ...Table) (*Descriptor, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("schema %q has no tables", version)
	}
	d := &Descriptor{
		version: version,
		tables:  cloneTables(tables),
		index:   make(map[string]int, len(tables)),
	}

	for i, t := range d.tables {
		if err := query.ValidateIdentifier(t.Name); err != nil {
			return nil, fmt.Errorf("table %d: %w", i, err)
		}
		if _, dup := d.index[t.Name]; dup {
			return nil, fmt.Errorf("duplicate table %q", t.Name)
		}
		d.index[t.Name] = i

		seen := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			if err := query.ValidateIdentifier(c.Name); err != nil {
				return nil, fmt.Errorf("table %q: %w", t.Name, err)
			}
			if seen[c.Name] {
				return nil, fmt.Errorf("table %q: duplicate column %q", t.Name, c.Name)
			}
			seen[c.Name] = true
		}
	}

	for _, t := range d.tables {
		for _, c := range t.Columns {
			if c.References == "" {
				continue
			}
			refTable, refCol, err := splitReference(c.References)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", t.Name, c.Name, err)
			}
			target, ok := d.Table(refTable)
			if !ok || !target.hasColumn(refCol) {
				return nil, fmt.Errorf("%s.%s references unknown column %s", t.Name, c.Name, c.References)
			}
		}
	}

	d.rendered = d.render()
	return d, nil
}

// Version returns the descriptor version string.
func (d *Descriptor) Version() string { return d.version }

// Tables returns a copy of the tables in declaration order.
func (d *Descriptor) Tables() []Table { return cloneTables(d.tables) }

// Table looks up a table by name.
func (d *Descriptor) Table(name string) (Table, bool) {
	i, ok := d.index[name]
	if !ok {
		return Table{}, false
	}
	return cloneTables(d.tables[i : i+1])[0], true
}

// TableNames returns the table names in declaration order.
func (d *Descriptor) TableNames() []string {
	names := make([]string, len(d.tables))
	for i, t := range d.tables {
		names[i] = t.Name
	}
	return names
}

// Render returns the descriptor as the TABLE blocks embedded in prompts.
func (d *Descriptor) Render() string { return d.rendered }

// MarshalJSON encodes the descriptor with its version.
func (d *Descriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Version string  `json:"version"`
		Tables  []Table `json:"tables"`
	}{d.version, d.tables})
}

func (d *Descriptor) render() string {
	var b strings.Builder
	for i, t := range d.tables {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "TABLE %s (\n", t.Name)
		for j, c := range t.Columns {
			b.WriteString("  ")
			b.WriteString(c.Name)
			b.WriteString(" ")
			b.WriteString(c.displayType())
			if c.PrimaryKey {
				b.WriteString(" PRIMARY KEY")
			}
			if c.References != "" {
				b.WriteString(" REFERENCES ")
				b.WriteString(c.References)
			}
			if j < len(t.Columns)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
		b.WriteString(")\n")
	}
	return b.String()
}

func (c Column) displayType() string {
	if len(c.Enum) == 0 {
		return c.Type
	}
	return "ENUM(" + quotedList(c.Enum) + ")"
}

func (t Table) hasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

func quotedList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return strings.Join(quoted, ", ")
}

func splitReference(ref string) (table, column string, err error) {
	open := strings.IndexByte(ref, '(')
	if open <= 0 || !strings.HasSuffix(ref, ")") {
		return "", "", fmt.Errorf("malformed reference %q, want table(column)", ref)
	}
	return ref[:open], ref[open+1 : len(ref)-1], nil
}

func cloneTables(in []Table) []Table {
	out := make([]Table, len(in))
	for i, t := range in {
		cols := make([]Column, len(t.Columns))
		for j, c := range t.Columns {
			if c.Enum != nil {
				c.Enum = append([]string(nil), c.Enum...)
			}
			cols[j] = c
		}
		out[i] = Table{Name: t.Name, Columns: cols}
	}
	return out
}
