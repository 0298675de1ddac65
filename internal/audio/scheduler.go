// Package audio owns the volume of every ambient audio channel and ramps it
// linearly between levels in discrete, cancelable steps.
package audio

import (
	"errors"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/joescharf/zenclock/internal/models"
)

// DefaultSteps is the number of discrete volume steps in one fade.
const DefaultSteps = 50

// epsilon is the distance from the target at which a fade counts as finished.
const epsilon = 1e-4

type fade struct {
	start      float64
	target     float64
	interval   time.Duration
	elapsed    time.Duration
	step       int
	onComplete func()
}

type channel struct {
	name    string
	volume  float64
	sound   string
	playing bool
	fade    *fade
}

// Scheduler is the single writer of channel volumes. Pending fade steps are
// advanced by Tick from the same driver that ticks the timers, so no step can
// run after its fade was canceled. It is not safe for concurrent use.
type Scheduler struct {
	sink     Sink
	steps    int
	logger   *slog.Logger
	channels map[string]*channel
}

// NewScheduler creates a scheduler that applies volumes to sink.
// A steps value below 1 selects DefaultSteps.
func NewScheduler(sink Sink, steps int, logger *slog.Logger) *Scheduler {
	if sink == nil {
		sink = NopSink{}
	}
	if steps < 1 {
		steps = DefaultSteps
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		sink:     sink,
		steps:    steps,
		logger:   logger,
		channels: make(map[string]*channel),
	}
}

func (s *Scheduler) channel(name string) *channel {
	ch, ok := s.channels[name]
	if !ok {
		ch = &channel{name: name}
		s.channels[name] = ch
	}
	return ch
}

// Volume returns the current volume of a channel.
func (s *Scheduler) Volume(name string) float64 {
	return s.channel(name).volume
}

// Fading reports whether a fade is in flight on the channel.
func (s *Scheduler) Fading(name string) bool {
	return s.channel(name).fade != nil
}

// FadeTo replaces any fade on the channel with a ramp from the current volume
// to target over d. A zero duration applies target and calls onComplete
// before returning.
func (s *Scheduler) FadeTo(name string, target float64, d time.Duration, onComplete func()) []models.Event {
	ch := s.channel(name)
	target = clamp(target)
	if ch.fade != nil {
		s.logger.Debug("fade replaced", "channel", name, "volume", ch.volume)
	}
	ch.fade = nil

	interval := d / time.Duration(s.steps)
	if d <= 0 || interval <= 0 {
		if err := s.setVolume(ch, target); err != nil {
			return []models.Event{s.fail(ch, err)}
		}
		if onComplete != nil {
			onComplete()
		}
		return []models.Event{fadeCompleted(ch)}
	}

	ch.fade = &fade{
		start:      ch.volume,
		target:     target,
		interval:   interval,
		onComplete: onComplete,
	}
	s.logger.Debug("fade scheduled", "channel", name, "from", ch.volume, "to", target, "duration", d)
	return nil
}

// Tick runs every fade step that has come due.
func (s *Scheduler) Tick(delta time.Duration) []models.Event {
	if delta < 0 {
		delta = 0
	}
	var events []models.Event
	for _, name := range s.fadingChannels() {
		ch := s.channels[name]
		f := ch.fade
		if f == nil {
			continue
		}

		f.elapsed += delta
		due := int(f.elapsed / f.interval)
		if due > s.steps {
			due = s.steps
		}
		if due <= f.step {
			continue
		}
		f.step = due

		v := clamp(f.start + float64(due)*(f.target-f.start)/float64(s.steps))
		if due < s.steps && math.Abs(v-f.target) >= epsilon {
			if err := s.setVolume(ch, v); err != nil {
				events = append(events, s.fail(ch, err))
			}
			continue
		}

		ch.fade = nil
		if err := s.setVolume(ch, f.target); err != nil {
			events = append(events, s.fail(ch, err))
			continue
		}
		if f.onComplete != nil {
			f.onComplete()
		}
		events = append(events, fadeCompleted(ch))
	}
	return events
}

// Cancel drops the pending fade on a channel without firing its callback.
func (s *Scheduler) Cancel(name string) {
	if ch, ok := s.channels[name]; ok && ch.fade != nil {
		s.logger.Debug("fade canceled", "channel", name, "volume", ch.volume)
		ch.fade = nil
	}
}

// Play starts sound on a channel. A sink failure is reported as a
// PlaybackFailed event and leaves the channel idle.
func (s *Scheduler) Play(name, sound string) []models.Event {
	ch := s.channel(name)
	ch.fade = nil
	if err := s.sink.Play(name, sound); err != nil {
		ch.sound = sound
		return []models.Event{s.fail(ch, err)}
	}
	ch.playing = true
	ch.sound = sound
	return nil
}

// Stop halts playback on a channel and cancels its pending fade.
func (s *Scheduler) Stop(name string) []models.Event {
	ch := s.channel(name)
	ch.fade = nil
	if !ch.playing {
		return nil
	}
	ch.playing = false
	if err := s.sink.Stop(name); err != nil {
		return []models.Event{s.fail(ch, err)}
	}
	ch.sound = ""
	return nil
}

// Close cancels every fade and stops every playing channel.
func (s *Scheduler) Close() error {
	var errs []error
	for _, name := range s.names() {
		ch := s.channels[name]
		ch.fade = nil
		if ch.playing {
			ch.playing = false
			if err := s.sink.Stop(name); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Snapshot renders the outward view of a channel.
func (s *Scheduler) Snapshot(name string) models.AudioSnapshot {
	ch := s.channel(name)
	return models.AudioSnapshot{
		Channel: ch.name,
		Volume:  ch.volume,
		Fading:  ch.fade != nil,
		Playing: ch.playing,
		Sound:   ch.sound,
	}
}

func (s *Scheduler) setVolume(ch *channel, v float64) error {
	ch.volume = v
	if !ch.playing {
		return nil
	}
	return s.sink.SetVolume(ch.name, v)
}

// fail resets the channel to idle. Playback is not retried.
func (s *Scheduler) fail(ch *channel, err error) models.Event {
	s.logger.Warn("playback failed", "channel", ch.name, "sound", ch.sound, "error", err)
	ev := models.Event{
		Kind:    models.EventPlaybackFailed,
		Source:  models.SourceAudio,
		Channel: ch.name,
		Sound:   ch.sound,
		Error:   err.Error(),
	}
	ch.fade = nil
	ch.playing = false
	ch.sound = ""
	return ev
}

func (s *Scheduler) fadingChannels() []string {
	var names []string
	for name, ch := range s.channels {
		if ch.fade != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) names() []string {
	names := make([]string, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fadeCompleted(ch *channel) models.Event {
	return models.Event{
		Kind:    models.EventFadeCompleted,
		Source:  models.SourceAudio,
		Channel: ch.name,
		Sound:   ch.sound,
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
