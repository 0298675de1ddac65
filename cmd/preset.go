package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/zenclock/internal/models"
	"github.com/joescharf/zenclock/internal/store"
)

var (
	presetWork       time.Duration
	presetBreak      time.Duration
	presetLongBreak  time.Duration
	presetSessions   int
	presetBreakRatio float64
	presetStopAfter  bool
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage saved session presets",
	Long: `Manage session presets saved in the database. A saved preset overrides
the config file for its mode, and a running server picks it up on restart or
through PUT /api/v1/presets/{mode}.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return presetListRun(cmd.Context())
	},
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List effective presets for every mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		return presetListRun(cmd.Context())
	},
}

var presetSaveCmd = &cobra.Command{
	Use:       "save <mode>",
	Short:     "Save a preset for a mode",
	Args:      cobra.ExactArgs(1),
	ValidArgs: modeArgs(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return presetSaveRun(cmd.Context(), args[0])
	},
}

var presetDeleteCmd = &cobra.Command{
	Use:       "delete <mode>",
	Short:     "Delete a saved preset, reverting to the config file",
	Args:      cobra.ExactArgs(1),
	ValidArgs: modeArgs(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return presetDeleteRun(cmd.Context(), args[0])
	},
}

func init() {
	presetSaveCmd.Flags().DurationVar(&presetWork, "work", 0, "Work length")
	presetSaveCmd.Flags().DurationVar(&presetBreak, "break", 0, "Break length")
	presetSaveCmd.Flags().DurationVar(&presetLongBreak, "long-break", 0, "Long break length (pomodoro)")
	presetSaveCmd.Flags().IntVar(&presetSessions, "sessions", 0, "Work sessions before a long break (pomodoro)")
	presetSaveCmd.Flags().Float64Var(&presetBreakRatio, "break-ratio", 0, "Suggested break as a fraction of work time (flowtime)")
	presetSaveCmd.Flags().BoolVar(&presetStopAfter, "stop-after-last", false, "Stop after the last interval (custom)")

	presetCmd.AddCommand(presetListCmd)
	presetCmd.AddCommand(presetSaveCmd)
	presetCmd.AddCommand(presetDeleteCmd)
	rootCmd.AddCommand(presetCmd)
}

func presetListRun(ctx context.Context) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	presets, err := loadPresets(ctx, s)
	if err != nil {
		return err
	}
	saved, err := s.ListPresets(ctx)
	if err != nil {
		return err
	}
	isSaved := make(map[models.Mode]bool, len(saved))
	for _, p := range saved {
		isSaved[p.Mode] = true
	}

	table := ui.Table([]string{"MODE", "SETTINGS", "SOURCE"})
	for _, m := range models.Modes {
		source := "config"
		if isSaved[m] {
			source = "saved"
		}
		if err := table.Append([]string{string(m), presetSummary(presets[m]), source}); err != nil {
			return err
		}
	}
	return table.Render()
}

// presetSummary describes the fields that matter for the preset's mode.
func presetSummary(cfg models.SessionConfig) string {
	switch cfg.Mode {
	case models.ModePomodoro:
		return fmt.Sprintf("work %s, break %s, long break %s every %d",
			cfg.Work, cfg.Break, cfg.LongBreak, cfg.SessionsUntilLongBreak)
	case models.ModeFlowtime:
		return fmt.Sprintf("break ratio %.2f", cfg.BreakRatio)
	case models.ModeTimeboxing:
		return fmt.Sprintf("work %s, break %s", cfg.Work, cfg.Break)
	case models.ModeCustomIntervals:
		parts := make([]string, len(cfg.Intervals))
		for i, iv := range cfg.Intervals {
			parts[i] = fmt.Sprintf("%s %s", iv.Name, iv.Duration)
		}
		summary := strings.Join(parts, ", ")
		if cfg.StopAfterLastInterval {
			summary += " (once)"
		}
		return summary
	case models.ModeMeditation:
		return cfg.Work.String()
	default:
		return ""
	}
}

func presetSaveRun(ctx context.Context, modeArg string) error {
	mode, err := models.ParseMode(modeArg)
	if err != nil {
		return err
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	presets, err := loadPresets(ctx, s)
	if err != nil {
		return err
	}

	cfg := presets[mode]
	cfg.Mode = mode
	if presetWork > 0 {
		cfg.Work = presetWork
	}
	if presetBreak > 0 {
		cfg.Break = presetBreak
	}
	if presetLongBreak > 0 {
		cfg.LongBreak = presetLongBreak
	}
	if presetSessions > 0 {
		cfg.SessionsUntilLongBreak = presetSessions
	}
	if presetBreakRatio > 0 {
		cfg.BreakRatio = presetBreakRatio
	}
	if presetStopAfter {
		cfg.StopAfterLastInterval = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would save %s preset: %s", mode, presetSummary(cfg))
		return nil
	}

	if err := s.SavePreset(ctx, &models.Preset{Mode: mode, Config: cfg}); err != nil {
		return err
	}
	ui.Success("Saved %s preset: %s", mode, presetSummary(cfg))
	return nil
}

func presetDeleteRun(ctx context.Context, modeArg string) error {
	mode, err := models.ParseMode(modeArg)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would delete saved %s preset", mode)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	if err := s.DeletePreset(ctx, mode); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no saved preset for %s", mode)
		}
		return err
	}
	ui.Success("Deleted saved %s preset", mode)
	return nil
}
