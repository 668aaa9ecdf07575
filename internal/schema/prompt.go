package schema

import (
	"fmt"
	"strings"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/query"
)

// DialectName returns the SQL dialect named in the prompt for a driver.
func DialectName(driver string) string {
	switch driver {
	case "postgres":
		return "PostgreSQL 14+"
	case "sqlite":
		return "SQLite 3"
	case "oracle":
		return "Oracle Database 19c+"
	default:
		return "MySQL 8.0+"
	}
}

// Rules returns the numbered instructions given to the model for a dialect.
func Rules(dialect string) []string {
	return []string{
		"Use ONLY these tables and columns. Do NOT invent fields.",
		fmt.Sprintf("Assume %s syntax.", dialect),
		"Always return a single SELECT query (a WITH clause is allowed). Never UPDATE, INSERT, DELETE, TRUNCATE, DROP, ALTER.",
		"If a question implies modification, respond with exactly: " + query.ReadOnlySentinel,
		"Prefer aggregation and GROUP BY when summarizing stock.",
		"If product names or warehouse names are mentioned, filter using LIKE with wildcards for flexibility.",
		"Use COALESCE when values may be NULL.",
		"Do NOT assume warehouse or location unless explicit.",
		"For stock availability, use: available_quantity = quantity - reserved_quantity",
		"Return ONLY the raw SQL query, no explanations, no markdown fences, no comments.",
		"If the question cannot be answered with the schema, respond with exactly: " + query.CannotAnswerSentinel,
	}
}

// SystemPrompt combines the rendered tables with the rules for a dialect.
func (d *Descriptor) SystemPrompt(dialect string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert %s query generator for an ERP-grade Inventory Management System.\n", dialect)
	b.WriteString("You convert natural language questions into SAFE, accurate SQL queries using ONLY the provided schema.\n\n")
	b.WriteString("SCHEMA:\n")
	b.WriteString(d.Render())
	b.WriteString("\nRULES:\n")
	for i, r := range Rules(dialect) {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Prompt is the full text sent to the completion backend for one question.
func (d *Descriptor) Prompt(dialect, question string) string {
	return d.SystemPrompt(dialect) + "\n\nUSER QUESTION: " + question + "\n\nGenerate the SQL query:"
}
