package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/zenclock/internal/models"
	"github.com/joescharf/zenclock/internal/orchestrator"
	"github.com/joescharf/zenclock/internal/output"
)

var (
	breatheInhale time.Duration
	breatheHold   time.Duration
	breatheExhale time.Duration
	breatheCycles int
)

var breatheCmd = &cobra.Command{
	Use:   "breathe",
	Short: "Run a guided breathing exercise in the foreground",
	Long: `Guide a breathing exercise: inhale, hold, exhale, then a short pause,
repeated for the configured number of cycles.

Flags override the configured pattern, e.g. 'zenclock breathe --inhale 4s
--hold 7s --exhale 8s --cycles 4'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return breatheRun(cmd.Context())
	},
}

func init() {
	breatheCmd.Flags().DurationVar(&breatheInhale, "inhale", 0, "Inhale length")
	breatheCmd.Flags().DurationVar(&breatheHold, "hold", 0, "Hold length")
	breatheCmd.Flags().DurationVar(&breatheExhale, "exhale", 0, "Exhale length")
	breatheCmd.Flags().IntVar(&breatheCycles, "cycles", 0, "Number of cycles")
	rootCmd.AddCommand(breatheCmd)
}

func breatheRun(ctx context.Context) error {
	cfg := breathingOverrides(breathingFromConfig())
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	o, _, err := newOrchestrator(ctx, newLogger(slog.LevelWarn))
	if err != nil {
		return err
	}

	cmds := []orchestrator.Command{orchestrator.StartBreathing{Config: cfg}}
	return drive(ctx, o, cmds, func(s models.Snapshot) string {
		return output.BreathingLine(s.Breathing)
	}, sessionEnded(models.SourceBreathing, func(s models.Snapshot) bool { return s.Breathing.Active }))
}

// breathingOverrides applies the command-line flags on top of cfg.
func breathingOverrides(cfg models.BreathingConfig) models.BreathingConfig {
	if breatheInhale > 0 {
		cfg.Inhale = breatheInhale
	}
	if breatheHold > 0 {
		cfg.Hold = breatheHold
	}
	if breatheExhale > 0 {
		cfg.Exhale = breatheExhale
	}
	if breatheCycles > 0 {
		cfg.TotalCycles = breatheCycles
	}
	return cfg
}
