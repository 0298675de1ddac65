// Package breathing drives the guided breathing cycle
// Inhale -> Hold -> Exhale -> Pause for a fixed number of cycles.
package breathing

import (
	"time"

	"github.com/joescharf/zenclock/internal/models"
)

// Default display bounds for Scale.
const (
	DefaultScaleMin = 0.5
	DefaultScaleMax = 1.0
)

// Controller is the breathing state machine. It is not safe for concurrent use.
type Controller struct {
	cfg          models.BreathingConfig
	active       bool
	phase        models.BreathingPhase
	phaseElapsed time.Duration
	cycle        int

	scaleMin float64
	scaleMax float64
}

// New creates an inactive controller whose snapshots scale between scaleMin and scaleMax.
func New(scaleMin, scaleMax float64) *Controller {
	if scaleMax <= scaleMin {
		scaleMin, scaleMax = DefaultScaleMin, DefaultScaleMax
	}
	return &Controller{phase: models.PhaseInhale, scaleMin: scaleMin, scaleMax: scaleMax}
}

// Start validates cfg and begins at the first Inhale. Starting while active restarts.
func (c *Controller) Start(cfg models.BreathingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg
	c.active = true
	c.phase = models.PhaseInhale
	c.phaseElapsed = 0
	c.cycle = 0
	return nil
}

// Stop ends the session immediately.
func (c *Controller) Stop() {
	c.active = false
}

// Active reports whether a breathing session is running.
func (c *Controller) Active() bool { return c.active }

// Phase returns the current phase.
func (c *Controller) Phase() models.BreathingPhase { return c.phase }

// Cycle returns the zero-based index of the current cycle.
func (c *Controller) Cycle() int { return c.cycle }

// Progress returns the fraction of the current phase completed, in [0,1].
func (c *Controller) Progress() float64 {
	d := c.cfg.PhaseDuration(c.phase)
	if d <= 0 {
		return 0
	}
	p := float64(c.phaseElapsed) / float64(d)
	if p > 1 {
		return 1
	}
	return p
}

// Tick advances the current phase by delta. Progress is clamped at the phase
// end and at most one phase transition happens per call.
func (c *Controller) Tick(delta time.Duration) []models.Event {
	if !c.active {
		return nil
	}
	if delta < 0 {
		delta = 0
	}

	d := c.cfg.PhaseDuration(c.phase)
	c.phaseElapsed += delta
	if c.phaseElapsed < d {
		return nil
	}
	c.phaseElapsed = d

	from := c.phase
	completed := models.Event{
		Kind:   models.EventPhaseCompleted,
		Source: models.SourceBreathing,
		From:   string(from),
		Cycle:  c.cycle,
	}

	if from == models.PhasePause {
		if c.cycle+1 == c.cfg.TotalCycles {
			c.active = false
			return []models.Event{completed, {
				Kind:   models.EventSessionCompleted,
				Source: models.SourceBreathing,
				From:   string(from),
				Cycle:  c.cfg.TotalCycles,
			}}
		}
		c.cycle++
	}

	c.phase = from.Next()
	c.phaseElapsed = 0
	completed.To = string(c.phase)
	return []models.Event{completed}
}

// Snapshot renders the outward breathing view.
func (c *Controller) Snapshot() models.BreathingSnapshot {
	progress := c.Progress()
	return models.BreathingSnapshot{
		Active:        c.active,
		Phase:         c.phase,
		CycleProgress: progress,
		CycleIndex:    c.cycle,
		TotalCycles:   c.cfg.TotalCycles,
		Scale:         Scale(c.phase, progress, c.scaleMin, c.scaleMax),
	}
}

// Scale maps a phase and its progress onto a display size between lo and hi:
// inhale grows, hold stays large, exhale shrinks, pause stays small.
func Scale(phase models.BreathingPhase, progress, lo, hi float64) float64 {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	switch phase {
	case models.PhaseInhale:
		return lo + (hi-lo)*progress
	case models.PhaseHold:
		return hi
	case models.PhaseExhale:
		return hi - (hi-lo)*progress
	case models.PhasePause:
		return lo
	}
	return lo
}
