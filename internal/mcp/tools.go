package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/pipeline"
)

// registerTools registers the inventory tools on the given server. Every
// tool is read-only; there is no way to change the database through MCP.
func (s *MCPServer) registerTools(srv *server.MCPServer) {
	srv.AddTool(
		mcp.NewTool("inventory_ask",
			mcp.WithDescription(
				"Answer a natural-language question about inventory (stock levels, "+
					"valuation, moves, lots, warehouses). The question is turned into a "+
					"single read-only SELECT, executed, and summarized. Returns the answer, "+
					"the SQL that was run and the rows.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("question",
				mcp.Required(),
				mcp.Description("The question, 3 to 1000 characters"),
			),
		),
		s.handleAsk,
	)

	srv.AddTool(
		mcp.NewTool("inventory_generate_sql",
			mcp.WithDescription(
				"Translate a question into the validated read-only SELECT statement "+
					"without running it.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("question",
				mcp.Required(),
				mcp.Description("The question, 3 to 1000 characters"),
			),
		),
		s.handleGenerateSQL,
	)

	srv.AddTool(
		mcp.NewTool("inventory_describe_schema",
			mcp.WithDescription(
				"Describe the inventory tables and columns the generator may use. "+
					"Call this to learn what questions can be answered.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleDescribeSchema,
	)
}

func (s *MCPServer) handleAsk(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	question, err := requireString(request, "question")
	if err != nil {
		return toolError("%v", err)
	}

	res, err := s.pipeline.Ask(ctx, pipeline.Request{Question: question, Source: pipeline.SourceMCP})
	if err != nil {
		return pipelineError(err)
	}

	return successJSON(map[string]interface{}{
		"answer":    res.Answer.Text,
		"summary":   res.Answer.Summary,
		"sql":       res.SQL,
		"model":     res.Model,
		"columns":   res.Columns,
		"rows":      res.Rows,
		"row_count": len(res.Rows),
		"truncated": res.Truncated,
	})
}

func (s *MCPServer) handleGenerateSQL(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	question, err := requireString(request, "question")
	if err != nil {
		return toolError("%v", err)
	}

	res, err := s.pipeline.GenerateSQL(ctx, pipeline.Request{Question: question, Source: pipeline.SourceMCP})
	if err != nil {
		return pipelineError(err)
	}

	return successJSON(map[string]interface{}{
		"sql":   res.SQL,
		"model": res.Model,
	})
}

func (s *MCPServer) handleDescribeSchema(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	b, err := s.schemaJSON()
	if err != nil {
		return toolError("%v", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
