package models

import "fmt"

// Mode selects the timing strategy for a productivity session.
type Mode string

const (
	ModePomodoro        Mode = "pomodoro"
	ModeFlowtime        Mode = "flowtime"
	ModeTimeboxing      Mode = "timeboxing"
	ModeCustomIntervals Mode = "custom"
	ModeMeditation      Mode = "meditation"
)

// Modes lists every supported mode in display order.
var Modes = []Mode{ModePomodoro, ModeFlowtime, ModeTimeboxing, ModeCustomIntervals, ModeMeditation}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModePomodoro, ModeFlowtime, ModeTimeboxing, ModeCustomIntervals, ModeMeditation:
		return true
	}
	return false
}

// Bounded reports whether the mode counts down a fixed phase duration.
func (m Mode) Bounded() bool {
	return m != ModeFlowtime
}

// ParseMode converts user input into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode: %q", s)
	}
	return m, nil
}

// SessionType is the phase a productivity session is currently in.
type SessionType string

const (
	SessionWork      SessionType = "work"
	SessionBreak     SessionType = "break"
	SessionLongBreak SessionType = "long_break"
	SessionFlow      SessionType = "flow"
	SessionInterval  SessionType = "interval"
)

// IsBreak reports whether the session type is a rest phase.
func (t SessionType) IsBreak() bool {
	return t == SessionBreak || t == SessionLongBreak
}

// IntervalKind classifies an entry of a custom interval sequence.
type IntervalKind string

const (
	IntervalWork  IntervalKind = "work"
	IntervalBreak IntervalKind = "break"
)

// Valid reports whether k is a known interval kind.
func (k IntervalKind) Valid() bool {
	return k == IntervalWork || k == IntervalBreak
}

// BreathingPhase is one step of the guided breathing cycle.
type BreathingPhase string

const (
	PhaseInhale BreathingPhase = "inhale"
	PhaseHold   BreathingPhase = "hold"
	PhaseExhale BreathingPhase = "exhale"
	PhasePause  BreathingPhase = "pause"
)

var nextBreathingPhase = map[BreathingPhase]BreathingPhase{
	PhaseInhale: PhaseHold,
	PhaseHold:   PhaseExhale,
	PhaseExhale: PhasePause,
	PhasePause:  PhaseInhale,
}

// Next returns the phase that follows p in the cycle.
func (p BreathingPhase) Next() BreathingPhase {
	next, ok := nextBreathingPhase[p]
	if !ok {
		return PhaseInhale
	}
	return next
}
