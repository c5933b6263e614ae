package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/fixpath/internal/cli"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Exposes the wizard as MCP tools so an assistant can guide a tenant.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			portal, err := openPortal(cmd)
			if err != nil {
				return err
			}
			defer portal.Close()

			transport, _ := cmd.Flags().GetString("transport")
			port, _ := cmd.Flags().GetInt("port")
			srv := portal.MCPServer()

			switch transport {
			case "stdio":
				portal.Logger.Info("starting mcp server", "transport", transport)
				return srv.ServeStdio()
			case "sse":
				portal.Logger.Info("starting mcp server", "transport", transport, "port", port)
				sigCtx := cli.NewSignalContext(contextOf(cmd))
				defer sigCtx.Cancel()
				if err := srv.ServeSSE(sigCtx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				portal.Logger.Info("mcp server stopped")
				return nil
			default:
				return fmt.Errorf("unknown transport %q, supported: stdio, sse", transport)
			}
		},
	}

	cmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	cmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
	return cmd
}
