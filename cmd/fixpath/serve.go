package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/fixpath/internal/cli"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serves the wizard over HTTP. The API is described by /openapi.yaml,
session changes stream over /events and metrics are exposed on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			portal, err := openPortal(cmd)
			if err != nil {
				return err
			}
			defer portal.Close()

			listen := portal.Config.Listen
			if cmd.Flags().Changed("listen") {
				listen, _ = cmd.Flags().GetString("listen")
			}

			server, err := portal.HTTPServer()
			if err != nil {
				return err
			}
			handler, err := server.Handler()
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              listen,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErrors := make(chan error, 1)
			go func() {
				portal.Logger.Info("http server listening", "addr", listen, "tree_id", portal.Tree.ID, "tree_version", portal.Tree.Version)
				serverErrors <- srv.ListenAndServe()
			}()

			sigCtx := cli.NewSignalContext(contextOf(cmd))
			defer sigCtx.Cancel()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)
			case <-sigCtx.Done():
				portal.Logger.Info("shutting down", "signal", fmt.Sprint(sigCtx.Signal()))
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					portal.Logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
					return srv.Close()
				}
				return nil
			}
		},
	}

	cmd.Flags().StringP("listen", "l", "", "Listen address (default from config, :8080)")
	return cmd
}
