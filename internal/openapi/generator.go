// Package openapi builds the OpenAPI 3.1 document for the query API.
package openapi

import (
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/schema"
)

// Options describes the deployment the document is generated for.
type Options struct {
	BaseURL     string
	Version     string
	AuthEnabled bool
}

// Generate returns the OpenAPI document for the query API. Every table of
// the descriptor is published as a row schema so clients know what shapes
// query results can take.
func Generate(opts Options, d *schema.Descriptor) *openapi3.T {
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title: "StockMaster API",
			Description: fmt.Sprintf("Ask questions about warehouse inventory in plain language. "+
				"Statements are generated, validated and executed read-only against schema %s.", d.Version()),
			Version: version,
		},
	}
	if opts.BaseURL != "" {
		doc.Servers = openapi3.Servers{{URL: opts.BaseURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{
		"apiKey": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{Type: "apiKey", In: "header", Name: "X-API-Key"},
		},
		"bearerAuth": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
		},
	}
	doc.Components = &components
	addComponentSchemas(doc)

	for _, t := range d.Tables() {
		doc.Components.Schemas[sanitizeSchemaName("Inventory", t.Name)] = tableSchema(t)
	}

	// Endpoints that are open unless auth is enabled, and endpoints that
	// always require a credential.
	var optional openapi3.SecurityRequirements
	if opts.AuthEnabled {
		optional = keyOrToken()
	}
	always := keyOrToken()

	doc.Paths = openapi3.NewPaths()
	doc.Paths.Set("/healthz", &openapi3.PathItem{Get: probeOperation("healthz", "Liveness probe")})
	doc.Paths.Set("/readyz", &openapi3.PathItem{Get: probeOperation("readyz", "Readiness probe; 503 when the inventory database is unreachable")})

	doc.Paths.Set("/api/v1/query", &openapi3.PathItem{Post: &openapi3.Operation{
		Tags:        []string{"query"},
		Summary:     "Answer a question",
		Description: "Generates a read-only statement for the question, executes it and phrases the result.",
		OperationID: "askQuestion",
		RequestBody: jsonBody("QuestionRequest"),
		Responses:   newResponses("200", "Answer with the rows it was built from", ref("QueryResponse")),
		Security:    secured(optional),
	}})
	doc.Paths.Set("/api/v1/sql", &openapi3.PathItem{Post: &openapi3.Operation{
		Tags:        []string{"query"},
		Summary:     "Generate SQL only",
		Description: "Generates and validates a statement without executing it.",
		OperationID: "generateSQL",
		RequestBody: jsonBody("QuestionRequest"),
		Responses:   newResponses("200", "Validated statement", ref("SQLResponse")),
		Security:    secured(optional),
	}})
	doc.Paths.Set("/api/v1/execute", &openapi3.PathItem{Post: &openapi3.Operation{
		Tags:        []string{"query"},
		Summary:     "Execute a statement",
		Description: "Runs caller-supplied SQL through the same extraction, validation and read-only execution as generated SQL.",
		OperationID: "executeSQL",
		RequestBody: jsonBody("ExecuteRequest"),
		Responses:   newResponses("200", "Rows returned by the statement", ref("QueryResponse")),
		Security:    secured(always),
	}})
	doc.Paths.Set("/api/v1/schema", &openapi3.PathItem{Get: &openapi3.Operation{
		Tags:        []string{"schema"},
		Summary:     "Describe the inventory schema",
		OperationID: "getSchema",
		Responses:   newResponses("200", "Tables, columns and the prompt rules", ref("SchemaResponse")),
		Security:    secured(optional),
	}})
	doc.Paths.Set("/api/v1/history", &openapi3.PathItem{Get: &openapi3.Operation{
		Tags:        []string{"history"},
		Summary:     "List recent questions",
		OperationID: "listHistory",
		Parameters: openapi3.Parameters{
			queryParam("limit", "Maximum entries to return (default 50, max 1000).", "integer"),
			queryParam("status", "Only entries with this status (ok or error).", "string"),
		},
		Responses: newResponses("200", "History entries, newest first", ref("HistoryResponse")),
		Security:  secured(always),
	}})
	doc.Paths.Set("/api/v1/auth/token", &openapi3.PathItem{Post: &openapi3.Operation{
		Tags:        []string{"auth"},
		Summary:     "Exchange an API key for a bearer token",
		OperationID: "issueToken",
		Responses:   newResponses("200", "Short-lived bearer token", ref("TokenResponse")),
		Security:    &openapi3.SecurityRequirements{{"apiKey": {}}},
	}})

	return doc
}

func keyOrToken() openapi3.SecurityRequirements {
	return openapi3.SecurityRequirements{{"apiKey": {}}, {"bearerAuth": {}}}
}

// secured returns nil for an empty requirement list so the operation carries
// no security section.
func secured(reqs openapi3.SecurityRequirements) *openapi3.SecurityRequirements {
	if len(reqs) == 0 {
		return nil
	}
	return &reqs
}

func addComponentSchemas(doc *openapi3.T) {
	s := doc.Components.Schemas

	s["ErrorResponse"] = object(openapi3.Schemas{
		"error": object(openapi3.Schemas{
			"code":    prop("integer", "int32", ""),
			"message": prop("string", "", ""),
			"context": object(openapi3.Schemas{
				"kind":   prop("string", "", "Stable failure category, e.g. read_only_refusal or validation_failed."),
				"reason": prop("string", "", "Stage reason code, e.g. forbidden_pattern, no_select_found or all_models_exhausted."),
				"rule":   prop("string", "", "Validator rule or keyword that matched, e.g. stacked_statement or DROP."),
				"hint":   prop("string", "", "Suggested remediation."),
			}),
		}),
		"meta": ref("Meta"),
	})
	s["Meta"] = object(openapi3.Schemas{
		"took_ms":     prop("number", "double", "Total request time."),
		"timestamp":   prop("string", "date-time", ""),
		"generate_ms": prop("integer", "int64", "Time spent obtaining a completion."),
		"execute_ms":  prop("integer", "int64", "Time spent in the database."),
		"request_id":  prop("string", "", ""),
	})
	maxQuestion := uint64(1000)
	s["QuestionRequest"] = required(object(openapi3.Schemas{
		"question": &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type:      &openapi3.Types{"string"},
			MinLength: 3,
			MaxLength: &maxQuestion,
		}},
	}), "question")
	s["ExecuteRequest"] = required(object(openapi3.Schemas{
		"sql":      prop("string", "", "A single SELECT or WITH statement."),
		"question": prop("string", "", "Optional question used to phrase the answer."),
	}), "sql")
	s["QueryResponse"] = object(openapi3.Schemas{
		"question":  prop("string", "", ""),
		"sql":       prop("string", "", ""),
		"model":     prop("string", "", "Model that produced the statement."),
		"columns":   array(prop("string", "", "")),
		"rows":      array(object(nil)),
		"row_count": prop("integer", "int32", ""),
		"truncated": prop("boolean", "", "True when the row limit cut the result short."),
		"answer":    prop("string", "", ""),
		"summary":   prop("string", "", ""),
		"meta":      ref("Meta"),
	})
	s["SQLResponse"] = object(openapi3.Schemas{
		"question": prop("string", "", ""),
		"sql":      prop("string", "", ""),
		"model":    prop("string", "", ""),
		"meta":     ref("Meta"),
	})
	s["SchemaResponse"] = object(openapi3.Schemas{
		"version": prop("string", "", ""),
		"dialect": prop("string", "", ""),
		"tables":  array(object(nil)),
		"rules":   array(prop("string", "", "")),
		"prompt":  prop("string", "", "Schema text sent to the model."),
	})
	s["HistoryEntry"] = object(openapi3.Schemas{
		"id":          prop("integer", "int64", ""),
		"request_id":  prop("string", "", ""),
		"source":      prop("string", "", "http, cli or mcp"),
		"question":    prop("string", "", ""),
		"sql":         prop("string", "", ""),
		"model":       prop("string", "", ""),
		"status":      prop("string", "", ""),
		"error_kind":  prop("string", "", ""),
		"row_count":   prop("integer", "int32", ""),
		"truncated":   prop("boolean", "", ""),
		"generate_ms": prop("integer", "int64", ""),
		"execute_ms":  prop("integer", "int64", ""),
		"total_ms":    prop("integer", "int64", ""),
		"created_at":  prop("string", "date-time", ""),
	})
	s["HistoryResponse"] = object(openapi3.Schemas{
		"resource": array(ref("HistoryEntry")),
		"meta":     ref("Meta"),
	})
	s["TokenResponse"] = object(openapi3.Schemas{
		"access_token": prop("string", "", ""),
		"token_type":   prop("string", "", ""),
		"expires_in":   prop("integer", "int32", "Lifetime in seconds."),
		"expires_at":   prop("string", "date-time", ""),
	})
}

func tableSchema(t schema.Table) *openapi3.SchemaRef {
	props := openapi3.Schemas{}
	for _, c := range t.Columns {
		props[c.Name] = &openapi3.SchemaRef{Value: columnSchema(c)}
	}
	s := object(props)
	s.Value.Description = fmt.Sprintf("A row of the %s table.", t.Name)
	return s
}

func probeOperation(id, summary string) *openapi3.Operation {
	desc := "Probe result"
	responses := openapi3.NewResponses()
	responses.Set("200", &openapi3.ResponseRef{Value: &openapi3.Response{
		Description: &desc,
		Content: openapi3.NewContentWithJSONSchemaRef(object(openapi3.Schemas{
			"status": prop("string", "", ""),
		})),
	}})
	return &openapi3.Operation{
		Tags:        []string{"system"},
		Summary:     summary,
		OperationID: id,
		Responses:   responses,
	}
}

func jsonBody(component string) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
		Required: true,
		Content:  openapi3.NewContentWithJSONSchemaRef(ref(component)),
	}}
}

func queryParam(name, description, typ string) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{Value: &openapi3.Parameter{
		Name:        name,
		In:          "query",
		Description: description,
		Schema:      prop(typ, "", ""),
	}}
}

// newResponses builds a Responses map with a success response and standard error responses.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := ref("ErrorResponse")
	for code, desc := range map[string]string{
		"400": "Invalid question, refused or rejected statement",
		"401": "Missing or invalid credentials",
		"429": "Rate limit exceeded",
		"500": "Generation or database failure",
	} {
		d := desc
		responses.Set(code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &d,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}
	return responses
}

// ─── Schema Helpers ─────────────────────────────────────────────────────────

func ref(component string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+component, nil)
}

func prop(typ, format, description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:        &openapi3.Types{typ},
		Format:      format,
		Description: description,
	}}
}

func object(props openapi3.Schemas) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: props,
	}}
}

func array(items *openapi3.SchemaRef) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:  &openapi3.Types{"array"},
		Items: items,
	}}
}

func required(s *openapi3.SchemaRef, names ...string) *openapi3.SchemaRef {
	s.Value.Required = names
	return s
}

// sanitizeSchemaName creates a valid OpenAPI component schema name from a
// prefix and a table name.
func sanitizeSchemaName(prefix, tableName string) string {
	s := capitalize(prefix) + "_" + capitalize(tableName)
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// capitalize returns a string with its first character uppercased.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
