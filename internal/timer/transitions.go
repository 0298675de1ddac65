package timer

import (
	"fmt"

	"github.com/joescharf/zenclock/internal/models"
)

// nextPhase describes where a bounded session goes after a boundary.
type nextPhase struct {
	sessionType models.SessionType
	interval    int
	newSession  bool
	done        bool
}

type transitionFunc func(cfg models.SessionConfig, s State) nextPhase

// transitions is the per-mode phase table for bounded modes. Flowtime has no
// automatic boundary and therefore no entry.
var transitions = map[models.Mode]transitionFunc{
	models.ModePomodoro:        pomodoroNext,
	models.ModeTimeboxing:      timeboxingNext,
	models.ModeMeditation:      meditationNext,
	models.ModeCustomIntervals: intervalNext,
}

func initialSessionType(m models.Mode) models.SessionType {
	switch m {
	case models.ModeFlowtime:
		return models.SessionFlow
	case models.ModeCustomIntervals:
		return models.SessionInterval
	default:
		return models.SessionWork
	}
}

// pomodoroNext expects CompletedSessions to already count the Work phase that just ended.
func pomodoroNext(cfg models.SessionConfig, s State) nextPhase {
	if s.SessionType != models.SessionWork {
		return nextPhase{sessionType: models.SessionWork, newSession: true}
	}
	if s.CompletedSessions > 0 && s.CompletedSessions%cfg.SessionsUntilLongBreak == 0 {
		return nextPhase{sessionType: models.SessionLongBreak}
	}
	return nextPhase{sessionType: models.SessionBreak}
}

func timeboxingNext(_ models.SessionConfig, s State) nextPhase {
	if s.SessionType == models.SessionWork {
		return nextPhase{sessionType: models.SessionBreak}
	}
	return nextPhase{sessionType: models.SessionWork, newSession: true}
}

func meditationNext(_ models.SessionConfig, _ State) nextPhase {
	return nextPhase{sessionType: models.SessionWork, newSession: true}
}

func intervalNext(cfg models.SessionConfig, s State) nextPhase {
	next := s.CurrentIntervalIndex + 1
	if next < len(cfg.Intervals) {
		return nextPhase{sessionType: models.SessionInterval, interval: next}
	}
	if cfg.StopAfterLastInterval {
		return nextPhase{done: true}
	}
	return nextPhase{sessionType: models.SessionInterval, interval: 0, newSession: true}
}

// endsWork reports whether the phase that just ran counts as a completed work session.
func (e *Engine) endsWork() bool {
	switch e.state.SessionType {
	case models.SessionWork:
		return true
	case models.SessionInterval:
		i := e.state.CurrentIntervalIndex
		return i < len(e.cfg.Intervals) && e.cfg.Intervals[i].Kind == models.IntervalWork
	}
	return false
}

// IsBreak reports whether the current phase is a rest phase, including break-kind intervals.
func (e *Engine) IsBreak() bool {
	if e.state.SessionType == models.SessionInterval {
		i := e.state.CurrentIntervalIndex
		return i < len(e.cfg.Intervals) && e.cfg.Intervals[i].Kind == models.IntervalBreak
	}
	return e.state.SessionType.IsBreak()
}

func (e *Engine) phaseName(t models.SessionType, interval int) string {
	if t != models.SessionInterval {
		return string(t)
	}
	if interval < len(e.cfg.Intervals) && e.cfg.Intervals[interval].Name != "" {
		return e.cfg.Intervals[interval].Name
	}
	return fmt.Sprintf("interval %d", interval+1)
}

// advance performs exactly one boundary transition.
func (e *Engine) advance() []models.Event {
	from := e.phaseName(e.state.SessionType, e.state.CurrentIntervalIndex)
	if e.endsWork() {
		e.state.CompletedSessions++
	}

	step, ok := transitions[e.cfg.Mode]
	if !ok {
		e.state.Active = false
		return nil
	}
	next := step(e.cfg, e.state)

	completed := models.Event{
		Kind:              models.EventPhaseCompleted,
		Source:            models.SourceTimer,
		Mode:              e.cfg.Mode,
		From:              from,
		CompletedSessions: e.state.CompletedSessions,
	}

	if next.done {
		e.state.Active = false
		e.carry = 0
		return []models.Event{completed, {
			Kind:              models.EventSessionCompleted,
			Source:            models.SourceTimer,
			Mode:              e.cfg.Mode,
			From:              from,
			CompletedSessions: e.state.CompletedSessions,
		}}
	}

	e.state.SessionType = next.sessionType
	e.state.CurrentIntervalIndex = next.interval
	if next.newSession {
		e.state.CurrentSessionIndex++
	}
	e.state.Remaining = e.phaseDuration(next.sessionType, next.interval)
	completed.To = e.phaseName(next.sessionType, next.interval)
	return []models.Event{completed}
}
