package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"agentherd.dev/internal/server"
)

func newServeCmd(version string) *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, orch, recorder, err := bootstrap()
			if err != nil {
				return err
			}
			defer recorder.Close()

			srv := server.NewServer(orch, settings, version)

			if httpAddr != "" {
				return srv.ServeHTTP(httpAddr)
			}

			// Stdio mode: kill every supervised agent on shutdown.
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigChan
				fmt.Fprintln(os.Stderr, "\nShutting down...")
				orch.KillAll()
				os.Exit(0)
			}()

			return srv.Serve()
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve over StreamableHTTP on this address (e.g. :8080)")

	return cmd
}
