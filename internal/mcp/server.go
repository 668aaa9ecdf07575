package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/pipeline"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/schema"
)

// SchemaURI is the resource URI of the inventory descriptor.
const SchemaURI = "stockmaster://schema"

// Pipeline is the part of *pipeline.Pipeline the MCP tools call.
type Pipeline interface {
	Ask(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	GenerateSQL(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// MCPServer wraps the mcp-go server with the inventory tools and resources so
// agents can ask questions about stock without talking to the database.
type MCPServer struct {
	pipeline   Pipeline
	descriptor *schema.Descriptor
	dialect    string
	logger     *slog.Logger
	server     *server.MCPServer
}

// NewMCPServer creates an MCPServer with all tools and resources registered.
// The returned server is ready to serve over stdio or HTTP.
func NewMCPServer(p Pipeline, d *schema.Descriptor, dialect, version string, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		pipeline:   p,
		descriptor: d,
		dialect:    dialect,
		logger:     logger,
	}

	mcpServer := server.NewMCPServer(
		"StockMaster Inventory",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode, the integration path for
// clients that launch the server as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode on addr.
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

// Handler returns the Streamable HTTP transport as an http.Handler so it can
// be mounted on the API router.
func (s *MCPServer) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.server)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
