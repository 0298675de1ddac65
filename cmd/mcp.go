package cmd

import (
	"context"
	"errors"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joescharf/zenclock/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

The server owns its own timer, so an assistant can start and steer focus
sessions, breathing exercises and ambient audio. Configure a client with:

  {
    "mcpServers": {
      "zenclock": { "command": "zenclock", "args": ["mcp"] }
    }
  }

Available tools: zen_start_session, zen_control_session, zen_start_breathing,
zen_stop_breathing, zen_audio, zen_snapshot, zen_history`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	// stdout carries the protocol, so logs go to stderr only.
	logger := newLogger(serverLogLevel())
	o, s, err := newOrchestrator(ctx, logger)
	if err != nil {
		return err
	}
	watchConfig(ctx, o, s, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return o.Run(gctx)
	})
	g.Go(func() error {
		// The client closing stdin ends the session.
		defer cancel()
		err := mcp.NewServer(o, s, buildVersion).ServeStdio(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}
