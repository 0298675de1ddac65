package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/joescharf/zenclock/internal/audio"
	"github.com/joescharf/zenclock/internal/models"
	"github.com/joescharf/zenclock/internal/orchestrator"
	"github.com/joescharf/zenclock/internal/store"
)

// setDefaults registers every config key with the built-in value.
func setDefaults(dir string) {
	d := orchestrator.DefaultOptions()
	p := d.Presets

	viper.SetDefault("state_dir", dir)
	viper.SetDefault("db_path", filepath.Join(dir, "zenclock.db"))
	viper.SetDefault("port", 7420)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.retention", "2160h")

	viper.SetDefault("mode", string(d.Mode))
	viper.SetDefault("tick_interval", d.TickInterval)

	pomodoro := p[models.ModePomodoro]
	viper.SetDefault("pomodoro.work", pomodoro.Work)
	viper.SetDefault("pomodoro.break", pomodoro.Break)
	viper.SetDefault("pomodoro.long_break", pomodoro.LongBreak)
	viper.SetDefault("pomodoro.sessions_until_long_break", pomodoro.SessionsUntilLongBreak)

	viper.SetDefault("flowtime.break_ratio", p[models.ModeFlowtime].BreakRatio)

	timeboxing := p[models.ModeTimeboxing]
	viper.SetDefault("timeboxing.work", timeboxing.Work)
	viper.SetDefault("timeboxing.break", timeboxing.Break)

	viper.SetDefault("meditation.duration", p[models.ModeMeditation].Work)

	viper.SetDefault("custom.intervals", p[models.ModeCustomIntervals].Intervals)
	viper.SetDefault("custom.stop_after_last", false)

	viper.SetDefault("breathing.inhale", d.Breathing.Inhale)
	viper.SetDefault("breathing.hold", d.Breathing.Hold)
	viper.SetDefault("breathing.exhale", d.Breathing.Exhale)
	viper.SetDefault("breathing.cycles", d.Breathing.TotalCycles)
	viper.SetDefault("breathing.scale_min", d.ScaleMin)
	viper.SetDefault("breathing.scale_max", d.ScaleMax)

	viper.SetDefault("audio.channel", d.Audio.Channel)
	viper.SetDefault("audio.volume", d.Audio.Volume)
	viper.SetDefault("audio.break_volume", d.Audio.BreakVolume)
	viper.SetDefault("audio.fade_in", d.Audio.FadeIn)
	viper.SetDefault("audio.fade_out", d.Audio.FadeOut)
	viper.SetDefault("audio.volume_fade", d.Audio.VolumeFade)
	viper.SetDefault("audio.steps", d.Audio.Steps)
	viper.SetDefault("audio.breathing_sound", "")
}

// presetsFromConfig reads the per-mode session presets.
func presetsFromConfig() (map[models.Mode]models.SessionConfig, error) {
	var intervals []models.Interval
	if err := viper.UnmarshalKey("custom.intervals", &intervals); err != nil {
		return nil, fmt.Errorf("read custom.intervals: %w", err)
	}

	return map[models.Mode]models.SessionConfig{
		models.ModePomodoro: {
			Work:                   viper.GetDuration("pomodoro.work"),
			Break:                  viper.GetDuration("pomodoro.break"),
			LongBreak:              viper.GetDuration("pomodoro.long_break"),
			SessionsUntilLongBreak: viper.GetInt("pomodoro.sessions_until_long_break"),
		},
		models.ModeFlowtime: {
			BreakRatio: viper.GetFloat64("flowtime.break_ratio"),
		},
		models.ModeTimeboxing: {
			Work:  viper.GetDuration("timeboxing.work"),
			Break: viper.GetDuration("timeboxing.break"),
		},
		models.ModeCustomIntervals: {
			Intervals:             intervals,
			StopAfterLastInterval: viper.GetBool("custom.stop_after_last"),
		},
		models.ModeMeditation: {
			Work: viper.GetDuration("meditation.duration"),
		},
	}, nil
}

// breathingFromConfig reads the default breathing pattern.
func breathingFromConfig() models.BreathingConfig {
	return models.BreathingConfig{
		Inhale:      viper.GetDuration("breathing.inhale"),
		Hold:        viper.GetDuration("breathing.hold"),
		Exhale:      viper.GetDuration("breathing.exhale"),
		TotalCycles: viper.GetInt("breathing.cycles"),
	}
}

// loadPresets combines config presets with presets saved in the store. Saved
// presets win. Every preset is validated so a bad config fails at startup.
func loadPresets(ctx context.Context, s store.Store) (map[models.Mode]models.SessionConfig, error) {
	presets, err := presetsFromConfig()
	if err != nil {
		return nil, err
	}

	if s != nil {
		saved, err := s.ListPresets(ctx)
		if err != nil {
			return nil, fmt.Errorf("load saved presets: %w", err)
		}
		for _, p := range saved {
			presets[p.Mode] = p.Config
		}
	}

	for m, cfg := range presets {
		cfg.Mode = m
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("preset %s: %w", m, err)
		}
		presets[m] = cfg
	}
	return presets, nil
}

// optionsFromConfig builds orchestrator options from viper and the store.
func optionsFromConfig(ctx context.Context, s store.Store) (orchestrator.Options, error) {
	presets, err := loadPresets(ctx, s)
	if err != nil {
		return orchestrator.Options{}, err
	}

	mode, err := models.ParseMode(viper.GetString("mode"))
	if err != nil {
		return orchestrator.Options{}, fmt.Errorf("read mode: %w", err)
	}

	breathing := breathingFromConfig()
	if err := breathing.Validate(); err != nil {
		return orchestrator.Options{}, fmt.Errorf("breathing: %w", err)
	}

	return orchestrator.Options{
		Mode:         mode,
		Presets:      presets,
		Breathing:    breathing,
		TickInterval: viper.GetDuration("tick_interval"),
		ScaleMin:     viper.GetFloat64("breathing.scale_min"),
		ScaleMax:     viper.GetFloat64("breathing.scale_max"),
		Audio: orchestrator.AudioOptions{
			Channel:        viper.GetString("audio.channel"),
			Volume:         viper.GetFloat64("audio.volume"),
			BreakVolume:    viper.GetFloat64("audio.break_volume"),
			FadeIn:         viper.GetDuration("audio.fade_in"),
			FadeOut:        viper.GetDuration("audio.fade_out"),
			VolumeFade:     viper.GetDuration("audio.volume_fade"),
			Steps:          viper.GetInt("audio.steps"),
			BreathingSound: viper.GetString("audio.breathing_sound"),
		},
	}, nil
}

// newOrchestrator builds an orchestrator from config. The returned store is
// nil when history is disabled.
func newOrchestrator(ctx context.Context, logger *slog.Logger) (*orchestrator.Orchestrator, store.Store, error) {
	s, err := historyStore()
	if err != nil {
		return nil, nil, err
	}
	opts, err := optionsFromConfig(ctx, s)
	if err != nil {
		return nil, nil, err
	}

	sink := audio.LogSink{Logger: logger.With("component", "sink")}
	o := orchestrator.New(opts, nil, sink, logger)
	if s != nil {
		o.SetRecorder(s)
	}
	return o, s, nil
}

// watchConfig re-applies presets whenever the config file changes.
func watchConfig(ctx context.Context, o *orchestrator.Orchestrator, s store.Store, logger *slog.Logger) {
	if viper.ConfigFileUsed() == "" {
		return
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		presets, err := loadPresets(ctx, s)
		if err != nil {
			logger.Warn("ignoring config change", "file", e.Name, "error", err)
			return
		}
		cmd := orchestrator.ApplyPresets{Presets: presets, Breathing: breathingFromConfig()}
		if _, err := o.Submit(ctx, cmd); err != nil {
			logger.Warn("failed to apply config change", "file", e.Name, "error", err)
			return
		}
		logger.Info("config reloaded", "file", e.Name)
	})
	viper.WatchConfig()
}
