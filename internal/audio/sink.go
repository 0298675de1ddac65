package audio

import "log/slog"

// Sink is the playback backend a Scheduler drives. Implementations render
// sound; they never decide volume on their own.
type Sink interface {
	Play(channel, sound string) error
	Stop(channel string) error
	SetVolume(channel string, volume float64) error
}

// NopSink accepts every request and produces no sound.
type NopSink struct{}

func (NopSink) Play(string, string) error       { return nil }
func (NopSink) Stop(string) error               { return nil }
func (NopSink) SetVolume(string, float64) error { return nil }

// LogSink records playback requests on a structured logger. It backs headless
// deployments where the client renders audio from the snapshot stream.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) Play(channel, sound string) error {
	l.Logger.Info("play", "channel", channel, "sound", sound)
	return nil
}

func (l LogSink) Stop(channel string) error {
	l.Logger.Info("stop", "channel", channel)
	return nil
}

func (l LogSink) SetVolume(channel string, volume float64) error {
	l.Logger.Debug("volume", "channel", channel, "volume", volume)
	return nil
}
