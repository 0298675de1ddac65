package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is matched by every InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid config")

// InvalidConfigError describes a rejected session or breathing configuration.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}

func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

func invalid(field, reason string) error {
	return &InvalidConfigError{Field: field, Reason: reason}
}

// DefaultBreakRatio is the Flowtime break length as a fraction of focused time.
const DefaultBreakRatio = 0.2

// Interval is one entry of a custom interval sequence.
type Interval struct {
	Name     string        `json:"name" yaml:"name" mapstructure:"name"`
	Duration time.Duration `json:"duration" yaml:"duration" mapstructure:"duration"`
	Kind     IntervalKind  `json:"kind" yaml:"kind" mapstructure:"kind"`
}

// SessionConfig holds the immutable parameters of one productivity session.
// StopAfterLastInterval ends a custom interval session after the last entry
// instead of looping back to the first one.
type SessionConfig struct {
	Mode                   Mode          `json:"mode"`
	Work                   time.Duration `json:"work"`
	Break                  time.Duration `json:"break"`
	LongBreak              time.Duration `json:"long_break"`
	SessionsUntilLongBreak int           `json:"sessions_until_long_break"`
	Intervals              []Interval    `json:"intervals,omitempty"`
	StopAfterLastInterval  bool          `json:"stop_after_last_interval"`
	BreakRatio             float64       `json:"break_ratio"`
}

// WithDefaults fills optional fields. A Flowtime break ratio of zero means
// DefaultBreakRatio.
func (c SessionConfig) WithDefaults() SessionConfig {
	if c.Mode == ModeFlowtime && c.BreakRatio == 0 {
		c.BreakRatio = DefaultBreakRatio
	}
	return c
}

// Validate checks the durations the configured mode relies on.
func (c SessionConfig) Validate() error {
	switch c.Mode {
	case ModePomodoro:
		if err := positive("work", c.Work); err != nil {
			return err
		}
		if err := positive("break", c.Break); err != nil {
			return err
		}
		if err := positive("long_break", c.LongBreak); err != nil {
			return err
		}
		if c.SessionsUntilLongBreak < 1 {
			return invalid("sessions_until_long_break", "must be at least 1")
		}
	case ModeTimeboxing:
		if err := positive("work", c.Work); err != nil {
			return err
		}
		if err := positive("break", c.Break); err != nil {
			return err
		}
	case ModeMeditation:
		return positive("work", c.Work)
	case ModeCustomIntervals:
		if len(c.Intervals) == 0 {
			return invalid("intervals", "must not be empty")
		}
		for i, iv := range c.Intervals {
			if err := positive(fmt.Sprintf("intervals[%d].duration", i), iv.Duration); err != nil {
				return err
			}
			if !iv.Kind.Valid() {
				return invalid(fmt.Sprintf("intervals[%d].kind", i), fmt.Sprintf("unknown kind %q", iv.Kind))
			}
		}
	case ModeFlowtime:
		if c.BreakRatio < 0 || c.BreakRatio > 1 {
			return invalid("break_ratio", "must be in [0, 1]")
		}
	default:
		return invalid("mode", fmt.Sprintf("unknown mode %q", c.Mode))
	}
	return nil
}

func positive(field string, d time.Duration) error {
	if d <= 0 {
		return invalid(field, "must be positive")
	}
	return nil
}

// BreathingPause is the fixed rest between breathing cycles.
const BreathingPause = time.Second

// BreathingConfig holds the immutable parameters of a guided breathing session.
type BreathingConfig struct {
	Inhale      time.Duration `json:"inhale"`
	Hold        time.Duration `json:"hold"`
	Exhale      time.Duration `json:"exhale"`
	TotalCycles int           `json:"total_cycles"`
}

// Validate rejects non-positive phase durations and cycle counts.
func (c BreathingConfig) Validate() error {
	if err := positive("inhale", c.Inhale); err != nil {
		return err
	}
	if err := positive("hold", c.Hold); err != nil {
		return err
	}
	if err := positive("exhale", c.Exhale); err != nil {
		return err
	}
	if c.TotalCycles < 1 {
		return invalid("total_cycles", "must be at least 1")
	}
	return nil
}

// PhaseDuration returns the target duration of phase p.
func (c BreathingConfig) PhaseDuration(p BreathingPhase) time.Duration {
	switch p {
	case PhaseInhale:
		return c.Inhale
	case PhaseHold:
		return c.Hold
	case PhaseExhale:
		return c.Exhale
	case PhasePause:
		return BreathingPause
	}
	return BreathingPause
}
