package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/zenclock/internal/models"
	"github.com/joescharf/zenclock/internal/store"
)

var (
	historySource string
	historyKind   string
	historySince  time.Duration
	historyLimit  int

	historyOlderThan time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded phase transitions and completed sessions",
	Long: `List recorded events, newest first.

Examples:
  zenclock history --source timer --kind session_completed
  zenclock history --since 24h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyListRun(cmd.Context())
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete history entries older than a duration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyPruneRun(cmd.Context())
	},
}

func init() {
	historyCmd.Flags().StringVar(&historySource, "source", "", "Filter by source (timer, breathing, audio)")
	historyCmd.Flags().StringVar(&historyKind, "kind", "", "Filter by kind (phase_completed, session_completed, playback_failed)")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "Only show entries newer than this, e.g. 24h")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "Maximum entries to show")

	historyPruneCmd.Flags().DurationVar(&historyOlderThan, "older-than", 0, "Age cutoff (default: history.retention)")

	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func historyListRun(ctx context.Context) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	filter := store.HistoryFilter{
		Source: models.EventSource(historySource),
		Kind:   models.EventKind(historyKind),
		Limit:  historyLimit,
	}
	if historySince > 0 {
		filter.Since = time.Now().Add(-historySince)
	}

	entries, err := s.ListHistory(ctx, filter)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		ui.Info("No history recorded yet.")
		return nil
	}
	return ui.History(entries)
}

func historyPruneRun(ctx context.Context) error {
	age := historyOlderThan
	if age <= 0 {
		age = viper.GetDuration("history.retention")
	}
	if age <= 0 {
		return fmt.Errorf("no cutoff: pass --older-than or set history.retention")
	}
	before := time.Now().Add(-age)

	if dryRun {
		ui.DryRunMsg("Would delete history entries before %s", before.Format(time.RFC3339))
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	n, err := s.PruneHistory(ctx, before)
	if err != nil {
		return err
	}
	ui.Success("Deleted %d history entries older than %s", n, age)
	return nil
}

// pruneHistory applies history.retention. A nil store or a zero retention
// keeps everything.
func pruneHistory(ctx context.Context, s store.Store, logger *slog.Logger) {
	retention := viper.GetDuration("history.retention")
	if s == nil || retention <= 0 {
		return
	}
	n, err := s.PruneHistory(ctx, time.Now().Add(-retention))
	if err != nil {
		logger.Warn("failed to prune history", "error", err)
		return
	}
	if n > 0 {
		logger.Info("pruned history", "deleted", n, "retention", retention)
	}
}
