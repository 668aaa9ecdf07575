package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/pipeline"
)

// requireString extracts a required string argument from the tool request.
func requireString(request mcp.CallToolRequest, key string) (string, error) {
	val, err := request.RequireString(key)
	if err != nil {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return val, nil
}

// successJSON marshals data to JSON and returns it as a tool result.
func successJSON(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns a tool-level error result. Errors returned this way are
// visible to the LLM so it can self-correct; they do NOT terminate the MCP
// session.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}

// pipelineError reports a failed question with its kind and hint.
func pipelineError(err error) (*mcp.CallToolResult, error) {
	kind := pipeline.KindOf(err)
	if kind == "" {
		kind = pipeline.QueryFailed
	}
	message := err.Error()
	reason := ""
	var pe *pipeline.Error
	if errors.As(err, &pe) {
		message = pe.Message
		reason = pe.Reason
		if pe.Rule != "" {
			reason += " (" + pe.Rule + ")"
		}
	}
	if reason != "" {
		return toolError("%s: %s\n\nReason: %s\nHint: %s", kind, message, reason, kind.Hint())
	}
	return toolError("%s: %s\n\nHint: %s", kind, message, kind.Hint())
}
