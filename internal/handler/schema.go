package handler

import (
	"net/http"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/schema"
)

// SchemaHandler publishes the inventory descriptor the model is prompted with.
type SchemaHandler struct {
	descriptor *schema.Descriptor
	dialect    string
}

// NewSchemaHandler creates a new SchemaHandler for the given SQL dialect name.
func NewSchemaHandler(d *schema.Descriptor, dialect string) *SchemaHandler {
	return &SchemaHandler{descriptor: d, dialect: dialect}
}

type schemaResponse struct {
	Version string         `json:"version"`
	Dialect string         `json:"dialect"`
	Tables  []schema.Table `json:"tables"`
	Rules   []string       `json:"rules"`
	Prompt  string         `json:"prompt"`
}

// Get returns the descriptor and the prompt text derived from it.
// GET /api/v1/schema
func (h *SchemaHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, schemaResponse{
		Version: h.descriptor.Version(),
		Dialect: h.dialect,
		Tables:  h.descriptor.Tables(),
		Rules:   schema.Rules(h.dialect),
		Prompt:  h.descriptor.SystemPrompt(h.dialect),
	})
}
