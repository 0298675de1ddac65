package orchestrator

import "github.com/joescharf/zenclock/internal/models"

// Command is an external request routed by the Orchestrator. The set is closed.
type Command interface {
	command()
}

// StartSession begins a productivity session. A zero Config starts the
// preset of the current mode.
type StartSession struct {
	Config models.SessionConfig
}

type PauseSession struct{}

type ResumeSession struct{}

type ResetSession struct{}

// SwitchMode discards the running session and loads the preset for Mode.
type SwitchMode struct {
	Mode models.Mode
}

// StartBreathing begins a guided breathing session. A zero Config uses the default.
type StartBreathing struct {
	Config models.BreathingConfig
}

type StopBreathing struct{}

// SetVolume sets the user volume, clamped to [0,1].
type SetVolume struct {
	Volume float64
}

type SetMuted struct {
	Muted bool
}

type PlaySound struct {
	Sound string
}

type StopSound struct{}

// ApplyPresets replaces the per-mode presets and the default breathing
// configuration, typically after a config file reload.
type ApplyPresets struct {
	Presets   map[models.Mode]models.SessionConfig
	Breathing models.BreathingConfig
}

func (StartSession) command()   {}
func (PauseSession) command()   {}
func (ResumeSession) command()  {}
func (ResetSession) command()   {}
func (SwitchMode) command()     {}
func (StartBreathing) command() {}
func (StopBreathing) command()  {}
func (SetVolume) command()      {}
func (SetMuted) command()       {}
func (PlaySound) command()      {}
func (StopSound) command()      {}
func (ApplyPresets) command()   {}
