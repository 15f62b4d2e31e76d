package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/servicesearch/internal/app"
	"github.com/kailas-cloud/servicesearch/internal/transport/mcp"
	"github.com/kailas-cloud/servicesearch/internal/version"
)

// NewMCPCmd creates the MCP command.
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve catalog search as an MCP tool on stdio",
		Long: `Start a Model Context Protocol server on stdio exposing the
search_services tool, so LLM agents can search the catalog.

Logs go to stderr; stdout carries the protocol.`,
		Example: `  # Configure in an MCP client:
  # {
  #   "mcpServers": {
  #     "servicesearch": {
  #       "command": "searchctl",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
		Args: cobra.NoArgs,
		RunE: runMCP,
	}
	return cmd
}

func runMCP(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, &cfg, log)
	if err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}
	defer a.Close()

	server := mcp.NewServer("servicesearch", version.Version, a.Search, a.Policy, log)

	log.Info("MCP server starting on stdio")
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
		return nil
	case err := <-serverErr:
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("MCP server: %w", err)
		}
		return nil
	}
}

