package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/depscout/depscout/internal/server"
	"github.com/depscout/depscout/pkg/sweep"
)

// serveCommand creates the serve command running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the depscout HTTP API.

The server exposes the analyze, search and package query operations as a
JSON API and keeps the cache store healthy with a background eviction
loop. It shuts down gracefully on SIGINT/SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	return cmd
}

// runServe wires the store, query layer, analyzer and eviction loop,
// then serves HTTP until the context is cancelled.
func (c *CLI) runServe(ctx context.Context, addr string) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	orch := c.newOrchestrator(st)
	analyzer := c.newAnalyzer(orch)

	sweeper := sweep.New(st, c.configuration().SweepInterval(), c.Logger)
	if err := sweeper.Start(); err != nil {
		return err
	}
	defer sweeper.Stop()

	srv := server.New(server.Config{
		Addr:     addr,
		Query:    orch,
		Analyzer: analyzer,
		Logger:   c.Logger,
	})
	return srv.Run(ctx)
}
