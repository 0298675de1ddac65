package models

import "time"

// TimerSnapshot is the outward view of the session timer.
type TimerSnapshot struct {
	Mode                  Mode        `json:"mode"`
	Active                bool        `json:"active"`
	Paused                bool        `json:"paused"`
	SessionType           SessionType `json:"session_type"`
	RemainingSeconds      float64     `json:"remaining_seconds"`
	ElapsedSeconds        float64     `json:"elapsed_seconds"`
	TotalSeconds          float64     `json:"total_seconds"`
	ProgressRatio         float64     `json:"progress_ratio"`
	CompletedSessions     int         `json:"completed_sessions"`
	CurrentSessionIndex   int         `json:"current_session_index"`
	CurrentIntervalIndex  int         `json:"current_interval_index"`
	IntervalName          string      `json:"interval_name,omitempty"`
	SuggestedBreakMinutes float64     `json:"suggested_break_minutes,omitempty"`
}

// BreathingSnapshot is the outward view of the breathing controller.
type BreathingSnapshot struct {
	Active        bool           `json:"active"`
	Phase         BreathingPhase `json:"phase"`
	CycleProgress float64        `json:"cycle_progress"`
	CycleIndex    int            `json:"cycle_index"`
	TotalCycles   int            `json:"total_cycles"`
	Scale         float64        `json:"scale"`
}

// AudioSnapshot is the outward view of one audio channel.
type AudioSnapshot struct {
	Channel string  `json:"channel"`
	Volume  float64 `json:"volume"`
	Fading  bool    `json:"fading"`
	Playing bool    `json:"playing"`
	Sound   string  `json:"sound,omitempty"`
	Muted   bool    `json:"muted"`
}

// Snapshot consolidates the state of all engines at one instant.
type Snapshot struct {
	Timer     TimerSnapshot     `json:"timer"`
	Breathing BreathingSnapshot `json:"breathing"`
	Audio     AudioSnapshot     `json:"audio"`
	At        time.Time         `json:"at"`
}
