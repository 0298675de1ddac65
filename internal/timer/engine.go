// Package timer implements the session timer engine: bounded countdown modes
// with a fixed phase transition table, and the unbounded Flowtime mode whose
// elapsed time is derived from a clock rather than accumulated ticks.
package timer

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/joescharf/zenclock/internal/models"
)

// State is the mutable session state owned by an Engine.
type State struct {
	Active               bool
	Paused               bool
	SessionType          models.SessionType
	Remaining            time.Duration
	Elapsed              time.Duration
	CurrentSessionIndex  int
	CompletedSessions    int
	CurrentIntervalIndex int
	FlowStart            time.Time
}

// Engine advances one productivity session per tick. It is not safe for
// concurrent use; callers serialize access.
type Engine struct {
	clock clockwork.Clock
	cfg   models.SessionConfig
	state State

	// carry holds delta left over after a phase boundary, consumed on the next tick.
	carry       time.Duration
	pausedAt    time.Time
	pausedTotal time.Duration
}

// New creates an idle engine for cfg. The config is validated on Start.
func New(clock clockwork.Clock, cfg models.SessionConfig) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	e := &Engine{clock: clock, cfg: cfg}
	e.resetState()
	return e
}

// Config returns the engine's current configuration.
func (e *Engine) Config() models.SessionConfig { return e.cfg }

// State returns a copy of the current session state.
func (e *Engine) State() State { return e.state }

// Start validates cfg and begins a new run. Starting while active restarts.
// On error the engine is left untouched.
func (e *Engine) Start(cfg models.SessionConfig) error {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg
	e.resetState()
	e.state.Active = true
	if !cfg.Mode.Bounded() {
		e.state.FlowStart = e.clock.Now()
	}
	return nil
}

// SwitchMode discards the current run and loads cfg without starting it.
func (e *Engine) SwitchMode(cfg models.SessionConfig) error {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg
	e.resetState()
	return nil
}

// Reset returns to the initial values of the current mode and deactivates.
func (e *Engine) Reset() {
	e.resetState()
}

// Pause suspends an active, running session.
func (e *Engine) Pause() {
	if !e.state.Active || e.state.Paused {
		return
	}
	e.state.Paused = true
	if !e.cfg.Mode.Bounded() {
		now := e.clock.Now()
		e.state.Elapsed = e.flowElapsed(now)
		e.pausedAt = now
	}
}

// Resume continues a paused session without resetting progress.
func (e *Engine) Resume() {
	if !e.state.Active || !e.state.Paused {
		return
	}
	e.state.Paused = false
	if !e.cfg.Mode.Bounded() {
		e.pausedTotal += e.clock.Since(e.pausedAt)
		e.pausedAt = time.Time{}
	}
}

// Tick applies delta to the session. At most one phase transition happens
// per call; any delta beyond the boundary is carried to the next tick.
func (e *Engine) Tick(delta time.Duration) []models.Event {
	if !e.state.Active || e.state.Paused {
		return nil
	}
	if !e.cfg.Mode.Bounded() {
		e.state.Elapsed = e.flowElapsed(e.clock.Now())
		return nil
	}

	if delta < 0 {
		delta = 0
	}
	delta += e.carry
	e.carry = 0

	if delta < e.state.Remaining {
		e.state.Remaining -= delta
		return nil
	}
	e.carry = delta - e.state.Remaining
	e.state.Remaining = 0
	return e.advance()
}

// SuggestedBreak is the Flowtime break heuristic: elapsed time scaled by the break ratio.
func (e *Engine) SuggestedBreak() time.Duration {
	if e.cfg.Mode.Bounded() {
		return 0
	}
	return time.Duration(float64(e.state.Elapsed) * e.cfg.BreakRatio)
}

// PhaseTotal returns the configured duration of the current phase.
func (e *Engine) PhaseTotal() time.Duration {
	return e.phaseDuration(e.state.SessionType, e.state.CurrentIntervalIndex)
}

// Snapshot renders the outward timer view.
func (e *Engine) Snapshot() models.TimerSnapshot {
	s := models.TimerSnapshot{
		Mode:                 e.cfg.Mode,
		Active:               e.state.Active,
		Paused:               e.state.Paused,
		SessionType:          e.state.SessionType,
		CompletedSessions:    e.state.CompletedSessions,
		CurrentSessionIndex:  e.state.CurrentSessionIndex,
		CurrentIntervalIndex: e.state.CurrentIntervalIndex,
	}
	if !e.cfg.Mode.Bounded() {
		s.ElapsedSeconds = e.state.Elapsed.Seconds()
		s.SuggestedBreakMinutes = e.SuggestedBreak().Minutes()
		return s
	}

	total := e.PhaseTotal()
	s.RemainingSeconds = e.state.Remaining.Seconds()
	s.TotalSeconds = total.Seconds()
	s.ElapsedSeconds = (total - e.state.Remaining).Seconds()
	if total > 0 {
		s.ProgressRatio = 1 - float64(e.state.Remaining)/float64(total)
	}
	if e.cfg.Mode == models.ModeCustomIntervals && e.state.CurrentIntervalIndex < len(e.cfg.Intervals) {
		s.IntervalName = e.cfg.Intervals[e.state.CurrentIntervalIndex].Name
	}
	return s
}

func (e *Engine) resetState() {
	e.state = State{SessionType: initialSessionType(e.cfg.Mode)}
	e.state.Remaining = e.phaseDuration(e.state.SessionType, 0)
	e.carry = 0
	e.pausedAt = time.Time{}
	e.pausedTotal = 0
}

func (e *Engine) flowElapsed(now time.Time) time.Duration {
	if e.state.Paused && !e.pausedAt.IsZero() {
		now = e.pausedAt
	}
	elapsed := now.Sub(e.state.FlowStart) - e.pausedTotal
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

func (e *Engine) phaseDuration(t models.SessionType, intervalIdx int) time.Duration {
	switch t {
	case models.SessionWork:
		return e.cfg.Work
	case models.SessionBreak:
		return e.cfg.Break
	case models.SessionLongBreak:
		return e.cfg.LongBreak
	case models.SessionInterval:
		if intervalIdx >= 0 && intervalIdx < len(e.cfg.Intervals) {
			return e.cfg.Intervals[intervalIdx].Duration
		}
	case models.SessionFlow:
	}
	return 0
}
