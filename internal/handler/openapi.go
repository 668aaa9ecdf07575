package handler

import (
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/openapi"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/schema"
)

// OpenAPIHandler serves the OpenAPI document. The descriptor is fixed for the
// life of the process, so the document is built once on first request.
type OpenAPIHandler struct {
	opts       openapi.Options
	descriptor *schema.Descriptor

	once sync.Once
	doc  *openapi3.T
}

// NewOpenAPIHandler creates a new OpenAPIHandler.
func NewOpenAPIHandler(opts openapi.Options, d *schema.Descriptor) *OpenAPIHandler {
	return &OpenAPIHandler{opts: opts, descriptor: d}
}

// ServeSpec returns the OpenAPI 3.1 document.
// GET /openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	h.once.Do(func() {
		h.doc = openapi.Generate(h.opts, h.descriptor)
	})
	writeJSON(w, http.StatusOK, h.doc)
}
