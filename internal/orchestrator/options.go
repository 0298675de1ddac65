package orchestrator

import (
	"time"

	"github.com/joescharf/zenclock/internal/audio"
	"github.com/joescharf/zenclock/internal/breathing"
	"github.com/joescharf/zenclock/internal/models"
)

// DefaultTickInterval is the cadence at which Run advances every engine.
const DefaultTickInterval = 100 * time.Millisecond

// AudioOptions controls how state changes map onto volume fades. BreakVolume
// scales the user volume during break phases. BreathingSound, when set, plays
// for the length of a breathing session.
type AudioOptions struct {
	Channel        string
	Volume         float64
	BreakVolume    float64
	FadeIn         time.Duration
	FadeOut        time.Duration
	VolumeFade     time.Duration
	Steps          int
	BreathingSound string
}

// Options configures an Orchestrator.
type Options struct {
	Mode         models.Mode
	Presets      map[models.Mode]models.SessionConfig
	Breathing    models.BreathingConfig
	TickInterval time.Duration
	ScaleMin     float64
	ScaleMax     float64
	Audio        AudioOptions
}

// DefaultPresets returns the built-in configuration for every mode.
func DefaultPresets() map[models.Mode]models.SessionConfig {
	return map[models.Mode]models.SessionConfig{
		models.ModePomodoro: {
			Mode:                   models.ModePomodoro,
			Work:                   25 * time.Minute,
			Break:                  5 * time.Minute,
			LongBreak:              15 * time.Minute,
			SessionsUntilLongBreak: 4,
		},
		models.ModeFlowtime: {
			Mode:       models.ModeFlowtime,
			BreakRatio: models.DefaultBreakRatio,
		},
		models.ModeTimeboxing: {
			Mode:  models.ModeTimeboxing,
			Work:  30 * time.Minute,
			Break: 5 * time.Minute,
		},
		models.ModeCustomIntervals: {
			Mode: models.ModeCustomIntervals,
			Intervals: []models.Interval{
				{Name: "Focus", Duration: 50 * time.Minute, Kind: models.IntervalWork},
				{Name: "Rest", Duration: 10 * time.Minute, Kind: models.IntervalBreak},
			},
		},
		models.ModeMeditation: {
			Mode: models.ModeMeditation,
			Work: 10 * time.Minute,
		},
	}
}

// DefaultBreathing is the 4-7-8 pattern repeated four times.
func DefaultBreathing() models.BreathingConfig {
	return models.BreathingConfig{
		Inhale:      4 * time.Second,
		Hold:        7 * time.Second,
		Exhale:      8 * time.Second,
		TotalCycles: 4,
	}
}

// DefaultOptions returns Options populated with the built-in defaults.
func DefaultOptions() Options {
	return Options{
		Mode:         models.ModePomodoro,
		Presets:      DefaultPresets(),
		Breathing:    DefaultBreathing(),
		TickInterval: DefaultTickInterval,
		ScaleMin:     breathing.DefaultScaleMin,
		ScaleMax:     breathing.DefaultScaleMax,
		Audio: AudioOptions{
			Channel:     "ambient",
			Volume:      0.7,
			BreakVolume: 0.4,
			FadeIn:      2 * time.Second,
			FadeOut:     2 * time.Second,
			VolumeFade:  300 * time.Millisecond,
			Steps:       audio.DefaultSteps,
		},
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if !o.Mode.Valid() {
		o.Mode = d.Mode
	}
	presets := make(map[models.Mode]models.SessionConfig, len(d.Presets))
	for m, cfg := range d.Presets {
		presets[m] = cfg
	}
	for m, cfg := range o.Presets {
		cfg.Mode = m
		presets[m] = cfg
	}
	o.Presets = presets
	if o.Breathing == (models.BreathingConfig{}) {
		o.Breathing = d.Breathing
	}
	if o.TickInterval <= 0 {
		o.TickInterval = d.TickInterval
	}
	if o.Audio.Channel == "" {
		o.Audio.Channel = d.Audio.Channel
	}
	if o.Audio.Steps < 1 {
		o.Audio.Steps = d.Audio.Steps
	}
	if o.Audio.BreakVolume <= 0 || o.Audio.BreakVolume > 1 {
		o.Audio.BreakVolume = 1
	}
	o.Audio.Volume = clampVolume(o.Audio.Volume)
	return o
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
