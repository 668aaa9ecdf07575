package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server that lets AI agents ask
inventory questions and read the schema.

By default, the server uses stdio transport, suitable for Claude Desktop
and other MCP clients. Use --transport http for HTTP-based access.

Available tools:
  inventory_ask              Answer a question with rows and a short answer
  inventory_generate_sql     Generate the read-only SQL without running it
  inventory_describe_schema  Return the inventory schema

Resources:
  stockmaster://schema       The inventory schema as JSON`,
		Example: `  # Start MCP server (stdio, for Claude Desktop)
  stockmaster mcp

  # Start MCP server over HTTP
  stockmaster mcp --transport http --port 3001`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd.Context(), transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport type: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(ctx context.Context, transport string, port int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if transport != "stdio" && transport != "http" {
		return fmt.Errorf("unsupported transport %q (use stdio or http)", transport)
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.pipeline(ctx, true)
	if err != nil {
		return err
	}

	srv := mcp.NewMCPServer(p, a.descriptor(), a.dialect(), versionString(), a.logger)

	switch transport {
	case "http":
		return srv.ServeHTTP(fmt.Sprintf(":%d", port))
	default:
		// stdout belongs to the protocol; logs go to stderr.
		return srv.ServeStdio()
	}
}
