// Package orchestrator composes the session timer, the breathing controller
// and the audio fade scheduler behind a single command queue.
package orchestrator

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/joescharf/zenclock/internal/audio"
	"github.com/joescharf/zenclock/internal/breathing"
	"github.com/joescharf/zenclock/internal/models"
	"github.com/joescharf/zenclock/internal/timer"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNoPreset       = errors.New("no preset for mode")
)

// Orchestrator routes commands to the engines and publishes snapshots. It
// holds no timing logic of its own. Dispatch and Tick must be called from one
// goroutine; Run provides that goroutine and Submit feeds it.
type Orchestrator struct {
	opts   Options
	clock  clockwork.Clock
	logger *slog.Logger

	timer     *timer.Engine
	breathing *breathing.Controller
	audio     *audio.Scheduler
	recorder  Recorder

	volume   float64
	muted    bool
	stopping bool
	pending  []models.Event

	requests chan request

	mu      sync.Mutex
	latest  models.Snapshot
	subs    map[int]chan Update
	nextSub int
}

// New builds an Orchestrator that owns its engines. A nil clock uses the real
// clock, a nil sink discards audio and a nil logger uses slog.Default.
func New(opts Options, clock clockwork.Clock, sink audio.Sink, logger *slog.Logger) *Orchestrator {
	opts = opts.withDefaults()
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		opts:      opts,
		clock:     clock,
		logger:    logger,
		timer:     timer.New(clock, opts.Presets[opts.Mode]),
		breathing: breathing.New(opts.ScaleMin, opts.ScaleMax),
		audio:     audio.NewScheduler(sink, opts.Audio.Steps, logger.With("component", "audio")),
		volume:    opts.Audio.Volume,
		requests:  make(chan request),
		subs:      make(map[int]chan Update),
	}
	o.audio.FadeTo(opts.Audio.Channel, o.targetVolume(), 0, nil)
	o.latest = o.Snapshot()
	return o
}

// SetRecorder attaches a Recorder that persists events emitted by Run.
func (o *Orchestrator) SetRecorder(r Recorder) {
	o.recorder = r
}

// Options returns the effective options.
func (o *Orchestrator) Options() Options { return o.opts }

// Dispatch applies one command synchronously.
func (o *Orchestrator) Dispatch(cmd Command) ([]models.Event, error) {
	var events []models.Event

	switch c := cmd.(type) {
	case StartSession:
		cfg := c.Config
		if cfg.Mode == "" {
			preset, err := o.preset(o.timer.Config().Mode)
			if err != nil {
				return nil, err
			}
			cfg = preset
		}
		if err := o.timer.Start(cfg); err != nil {
			return nil, fmt.Errorf("start session: %w", err)
		}
		o.logger.Info("session started", "mode", cfg.Mode)
		events = o.retarget()

	case PauseSession:
		o.timer.Pause()

	case ResumeSession:
		o.timer.Resume()

	case ResetSession:
		o.timer.Reset()
		events = o.retarget()

	case SwitchMode:
		cfg, err := o.preset(c.Mode)
		if err != nil {
			return nil, err
		}
		if err := o.timer.SwitchMode(cfg); err != nil {
			return nil, fmt.Errorf("switch mode: %w", err)
		}
		o.logger.Info("mode switched", "mode", c.Mode)
		events = o.retarget()

	case StartBreathing:
		cfg := c.Config
		if cfg == (models.BreathingConfig{}) {
			cfg = o.opts.Breathing
		}
		if err := o.breathing.Start(cfg); err != nil {
			return nil, fmt.Errorf("start breathing: %w", err)
		}
		o.logger.Info("breathing started", "cycles", cfg.TotalCycles)
		if o.opts.Audio.BreathingSound != "" {
			events = o.play(o.opts.Audio.BreathingSound)
		}

	case StopBreathing:
		wasActive := o.breathing.Active()
		o.breathing.Stop()
		if wasActive && o.opts.Audio.BreathingSound != "" {
			events = o.fadeOutAndStop()
		}

	case SetVolume:
		o.volume = clampVolume(c.Volume)
		events = o.retarget()

	case SetMuted:
		o.muted = c.Muted
		events = o.retarget()

	case PlaySound:
		events = o.play(c.Sound)

	case StopSound:
		events = o.fadeOutAndStop()

	case ApplyPresets:
		if err := o.applyPresets(c); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}

	o.settle()
	return append(events, o.drainPending()...), nil
}

// Tick advances every engine by delta. Existing fades step first, then the
// timer and breathing controllers, and at most one new fade is requested.
func (o *Orchestrator) Tick(delta time.Duration) []models.Event {
	events := o.audio.Tick(delta)

	timerEvents := o.timer.Tick(delta)
	breathEvents := o.breathing.Tick(delta)
	events = append(events, timerEvents...)
	events = append(events, breathEvents...)

	switch {
	case hasKind(breathEvents, models.EventSessionCompleted) && o.opts.Audio.BreathingSound != "":
		events = append(events, o.fadeOutAndStop()...)
	case len(timerEvents) > 0:
		events = append(events, o.retarget()...)
	}

	o.settle()
	return append(events, o.drainPending()...)
}

// Snapshot renders the consolidated state. Like Dispatch it must be called
// from the driving goroutine; other goroutines use Latest.
func (o *Orchestrator) Snapshot() models.Snapshot {
	a := o.audio.Snapshot(o.opts.Audio.Channel)
	a.Muted = o.muted
	return models.Snapshot{
		Timer:     o.timer.Snapshot(),
		Breathing: o.breathing.Snapshot(),
		Audio:     a,
		At:        o.clock.Now(),
	}
}

// Latest returns the most recently published snapshot. Safe for concurrent use.
func (o *Orchestrator) Latest() models.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.latest
}

// Close cancels pending fades and stops playback.
func (o *Orchestrator) Close() error {
	return o.audio.Close()
}

func (o *Orchestrator) preset(m models.Mode) (models.SessionConfig, error) {
	cfg, ok := o.opts.Presets[m]
	if !ok {
		return models.SessionConfig{}, fmt.Errorf("%w: %s", ErrNoPreset, m)
	}
	cfg.Mode = m
	return cfg, nil
}

func (o *Orchestrator) applyPresets(c ApplyPresets) error {
	for m, cfg := range c.Presets {
		cfg.Mode = m
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("preset %s: %w", m, err)
		}
	}
	if c.Breathing != (models.BreathingConfig{}) {
		if err := c.Breathing.Validate(); err != nil {
			return fmt.Errorf("breathing preset: %w", err)
		}
		o.opts.Breathing = c.Breathing
	}

	merged := make(map[models.Mode]models.SessionConfig, len(o.opts.Presets))
	for m, cfg := range o.opts.Presets {
		merged[m] = cfg
	}
	for m, cfg := range c.Presets {
		cfg.Mode = m
		merged[m] = cfg
	}
	o.opts.Presets = merged

	// An idle timer picks up the new values for its mode right away.
	if !o.timer.State().Active {
		if cfg, ok := merged[o.timer.Config().Mode]; ok {
			return o.timer.SwitchMode(cfg)
		}
	}
	return nil
}

// targetVolume is the volume the ambient channel should rest at right now.
func (o *Orchestrator) targetVolume() float64 {
	if o.muted {
		return 0
	}
	if o.timer.State().Active && o.timer.IsBreak() {
		return o.volume * o.opts.Audio.BreakVolume
	}
	return o.volume
}

// retarget requests a fade to the current target volume. A channel that is
// fading out before stopping keeps its fade.
func (o *Orchestrator) retarget() []models.Event {
	ch := o.opts.Audio.Channel
	if o.stopping {
		if o.audio.Fading(ch) {
			return nil
		}
		// The fade-out was dropped by a playback failure and its callback never ran.
		o.stopping = false
	}
	return o.audio.FadeTo(ch, o.targetVolume(), o.opts.Audio.VolumeFade, nil)
}

// play starts a sound from silence and fades it in.
func (o *Orchestrator) play(sound string) []models.Event {
	ch := o.opts.Audio.Channel
	o.stopping = false
	events := o.audio.FadeTo(ch, 0, 0, nil)
	failed := o.audio.Play(ch, sound)
	if len(failed) > 0 {
		return append(events, failed...)
	}
	o.logger.Info("sound started", "channel", ch, "sound", sound)
	return append(events, o.audio.FadeTo(ch, o.targetVolume(), o.opts.Audio.FadeIn, nil)...)
}

// fadeOutAndStop fades the channel to silence and stops playback once the fade
// completes. Only a new PlaySound supersedes it.
func (o *Orchestrator) fadeOutAndStop() []models.Event {
	ch := o.opts.Audio.Channel
	o.stopping = true
	return o.audio.FadeTo(ch, 0, o.opts.Audio.FadeOut, func() {
		o.stopping = false
		o.pending = append(o.pending, o.audio.Stop(ch)...)
	})
}

// settle clears the fade-out latch once the ambient channel has failed, so
// later volume changes are not ignored.
func (o *Orchestrator) settle() {
	if o.stopping && !o.audio.Fading(o.opts.Audio.Channel) {
		o.stopping = false
	}
}

func (o *Orchestrator) drainPending() []models.Event {
	events := o.pending
	o.pending = nil
	return events
}

func hasKind(events []models.Event, kind models.EventKind) bool {
	for _, ev := range events {
		if ev.Kind == kind {
			return true
		}
	}
	return false
}
