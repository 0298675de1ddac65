package models

import "time"

// IntervalRequest is the transport form of an Interval, in minutes.
type IntervalRequest struct {
	Name    string       `json:"name"`
	Minutes float64      `json:"minutes"`
	Kind    IntervalKind `json:"kind"`
}

// SessionRequest is the transport form of a SessionConfig. Durations are in
// minutes so HTTP and MCP clients never deal with nanoseconds.
type SessionRequest struct {
	Mode                   Mode              `json:"mode,omitempty"`
	WorkMinutes            float64           `json:"work_minutes,omitempty"`
	BreakMinutes           float64           `json:"break_minutes,omitempty"`
	LongBreakMinutes       float64           `json:"long_break_minutes,omitempty"`
	SessionsUntilLongBreak int               `json:"sessions_until_long_break,omitempty"`
	Intervals              []IntervalRequest `json:"intervals,omitempty"`
	StopAfterLastInterval  bool              `json:"stop_after_last_interval,omitempty"`
	BreakRatio             float64           `json:"break_ratio,omitempty"`
}

// HasDurations reports whether the request carries its own configuration
// rather than naming a preset.
func (r SessionRequest) HasDurations() bool {
	return r.WorkMinutes != 0 || r.BreakMinutes != 0 || r.LongBreakMinutes != 0 ||
		r.SessionsUntilLongBreak != 0 || len(r.Intervals) > 0 || r.BreakRatio != 0
}

// Config converts the request. Validation is left to the consumer.
func (r SessionRequest) Config() SessionConfig {
	cfg := SessionConfig{
		Mode:                   r.Mode,
		Work:                   Minutes(r.WorkMinutes),
		Break:                  Minutes(r.BreakMinutes),
		LongBreak:              Minutes(r.LongBreakMinutes),
		SessionsUntilLongBreak: r.SessionsUntilLongBreak,
		StopAfterLastInterval:  r.StopAfterLastInterval,
		BreakRatio:             r.BreakRatio,
	}
	for _, iv := range r.Intervals {
		cfg.Intervals = append(cfg.Intervals, Interval{Name: iv.Name, Duration: Minutes(iv.Minutes), Kind: iv.Kind})
	}
	return cfg
}

// BreathingRequest is the transport form of a BreathingConfig, in seconds.
// The zero value selects the default pattern.
type BreathingRequest struct {
	InhaleSeconds float64 `json:"inhale_seconds,omitempty"`
	HoldSeconds   float64 `json:"hold_seconds,omitempty"`
	ExhaleSeconds float64 `json:"exhale_seconds,omitempty"`
	Cycles        int     `json:"cycles,omitempty"`
}

// Config converts the request.
func (r BreathingRequest) Config() BreathingConfig {
	return BreathingConfig{
		Inhale:      Seconds(r.InhaleSeconds),
		Hold:        Seconds(r.HoldSeconds),
		Exhale:      Seconds(r.ExhaleSeconds),
		TotalCycles: r.Cycles,
	}
}

// Minutes converts fractional minutes to a Duration.
func Minutes(m float64) time.Duration { return time.Duration(m * float64(time.Minute)) }

// Seconds converts fractional seconds to a Duration.
func Seconds(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }
