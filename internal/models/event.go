package models

import "time"

// EventKind identifies a notification raised by one of the engines.
type EventKind string

const (
	EventPhaseCompleted   EventKind = "phase_completed"
	EventSessionCompleted EventKind = "session_completed"
	EventFadeCompleted    EventKind = "fade_completed"
	EventPlaybackFailed   EventKind = "playback_failed"
)

// EventSource names the component that raised an event.
type EventSource string

const (
	SourceTimer     EventSource = "timer"
	SourceBreathing EventSource = "breathing"
	SourceAudio     EventSource = "audio"
)

// Event is returned from Tick and command handlers instead of invoking callbacks inline.
type Event struct {
	Kind              EventKind   `json:"kind"`
	Source            EventSource `json:"source"`
	Mode              Mode        `json:"mode,omitempty"`
	From              string      `json:"from,omitempty"`
	To                string      `json:"to,omitempty"`
	CompletedSessions int         `json:"completed_sessions,omitempty"`
	Cycle             int         `json:"cycle,omitempty"`
	Channel           string      `json:"channel,omitempty"`
	Sound             string      `json:"sound,omitempty"`
	Error             string      `json:"error,omitempty"`
}

// HistoryEntry is a persisted event.
type HistoryEntry struct {
	ID         string    `json:"id"`
	Event      Event     `json:"event"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Preset is a saved session configuration for one mode.
type Preset struct {
	Mode      Mode          `json:"mode"`
	Config    SessionConfig `json:"config"`
	UpdatedAt time.Time     `json:"updated_at"`
}
