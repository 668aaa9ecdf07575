package openapi

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/schema"
)

// TypeMapping maps database column types to OpenAPI type/format pairs.
type TypeMapping struct {
	Type   string // OpenAPI type: string, integer, number, boolean
	Format string // OpenAPI format: int32, int64, double, date, date-time
}

// dbTypeToOpenAPI covers the column types used by the inventory descriptor and
// the engines it is deployed on (case-insensitive lookup).
var dbTypeToOpenAPI = map[string]TypeMapping{
	"int":       {"integer", "int32"},
	"integer":   {"integer", "int32"},
	"smallint":  {"integer", "int32"},
	"bigint":    {"integer", "int64"},
	"decimal":   {"number", "double"},
	"numeric":   {"number", "double"},
	"number":    {"number", "double"},
	"real":      {"number", "float"},
	"double":    {"number", "double"},
	"float":     {"number", "float"},
	"boolean":   {"boolean", ""},
	"bool":      {"boolean", ""},
	"varchar":   {"string", ""},
	"varchar2":  {"string", ""},
	"char":      {"string", ""},
	"text":      {"string", ""},
	"clob":      {"string", ""},
	"enum":      {"string", ""},
	"date":      {"string", "date"},
	"datetime":  {"string", "date-time"},
	"timestamp": {"string", "date-time"},
}

// MapDBType converts a database column type to an OpenAPI type mapping.
// Falls back to {"string", ""} for unknown types.
func MapDBType(dbType string) TypeMapping {
	normalized := strings.ToLower(strings.TrimSpace(dbType))

	// "varchar(255)" -> "varchar", "decimal(15,2)" -> "decimal"
	if idx := strings.IndexByte(normalized, '('); idx >= 0 {
		normalized = normalized[:idx]
	}
	normalized = strings.TrimSpace(strings.TrimSuffix(normalized, " unsigned"))

	if m, ok := dbTypeToOpenAPI[normalized]; ok {
		return m
	}
	return TypeMapping{"string", ""}
}

// columnSchema describes one descriptor column as a row property.
func columnSchema(c schema.Column) *openapi3.Schema {
	m := MapDBType(c.Type)
	s := &openapi3.Schema{
		Type:     &openapi3.Types{m.Type},
		Format:   m.Format,
		Nullable: c.Nullable,
	}
	for _, v := range c.Enum {
		s.Enum = append(s.Enum, v)
	}
	if c.References != "" {
		s.Description = "References " + c.References + "."
	}
	return s
}
