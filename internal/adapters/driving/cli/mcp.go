package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/wikirag/internal/adapters/driving/mcp"
	"github.com/custodia-labs/wikirag/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the knowledge base over the Model Context Protocol",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	Long: `Run an MCP server offering the "ask" and "retrieve" tools, the
wikirag://collection resource and every answer template as
wikirag://prompts/{name}.

JSON-RPC runs over stdin/stdout unless --port is set, in which case the
streamable HTTP transport listens on that port.

  wikirag mcp serve
  wikirag mcp serve --port 8080

Assistant configuration:
  {"mcpServers": {"wikirag": {"command": "wikirag", "args": ["mcp", "serve"]}}}`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "listen for HTTP on this port instead of stdio")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if services == nil {
		return mcp.ErrMissingAnswerService
	}
	port, _ := cmd.Flags().GetInt("port")

	server, err := mcp.NewServer(&mcp.Ports{
		Answer:      services.Answer,
		Retrieval:   services.Retrieval,
		Collections: services.Collections,
		Prompts:     services.Prompts,
		Defaults:    services.Search,
	})
	if err != nil {
		return err
	}

	// stdout belongs to the protocol; logs go to stderr with timestamps.
	logger.SetTimestamps(true)
	defer logger.SetTimestamps(false)

	if port <= 0 {
		return server.Run(cmd.Context())
	}
	addr := fmt.Sprintf(":%d", port)
	logger.Info("MCP server listening on http://localhost%s", addr)
	return server.RunHTTP(cmd.Context(), addr)
}
