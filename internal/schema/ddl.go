package schema

import (
	"fmt"
	"regexp"
	"strings"
)

var varcharType = regexp.MustCompile(`^VARCHAR\((\d+)\)$`)

// CreateStatements returns CREATE TABLE statements for the descriptor in the
// given driver's dialect, in dependency order. Supported drivers are mysql,
// postgres and sqlite.
func (d *Descriptor) CreateStatements(driver string) ([]string, error) {
	switch driver {
	case "mysql", "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("no DDL dialect for driver %q", driver)
	}

	stmts := make([]string, 0, len(d.tables))
	for _, t := range d.tables {
		var lines []string
		var fks []string
		for _, c := range t.Columns {
			lines = append(lines, "  "+columnDDL(driver, c))
			if c.References != "" {
				refTable, refCol, _ := splitReference(c.References)
				fks = append(fks, fmt.Sprintf("  FOREIGN KEY (%s) REFERENCES %s(%s)", c.Name, refTable, refCol))
			}
		}
		lines = append(lines, fks...)
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE %s (\n%s\n)", t.Name, strings.Join(lines, ",\n")))
	}
	return stmts, nil
}

// DropStatements returns DROP TABLE statements in reverse dependency order.
func (d *Descriptor) DropStatements() []string {
	stmts := make([]string, 0, len(d.tables))
	for i := len(d.tables) - 1; i >= 0; i-- {
		stmts = append(stmts, "DROP TABLE IF EXISTS "+d.tables[i].Name)
	}
	return stmts
}

func columnDDL(driver string, c Column) string {
	typ := c.Type
	switch {
	case len(c.Enum) > 0:
		check := fmt.Sprintf(" CHECK (%s IN (%s))", c.Name, quotedList(c.Enum))
		switch driver {
		case "mysql":
			typ = "ENUM(" + quotedList(c.Enum) + ")"
		case "postgres":
			typ = "VARCHAR(32)" + check
		default:
			typ = "TEXT" + check
		}
	case typ == "INT" && c.PrimaryKey && driver == "sqlite":
		typ = "INTEGER"
	case typ == "INT" && driver == "postgres":
		typ = "INTEGER"
	case typ == "DATETIME" && driver == "postgres":
		typ = "TIMESTAMP"
	case varcharType.MatchString(typ) && driver == "sqlite":
		typ = "TEXT"
	}

	def := c.Name + " " + typ
	if c.PrimaryKey {
		def += " PRIMARY KEY"
	} else if !c.Nullable {
		def += " NOT NULL"
	}
	return def
}
