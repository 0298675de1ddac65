package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/zenclock/internal/models"
)

func resetPresetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		presetWork, presetBreak, presetLongBreak = 0, 0, 0
		presetSessions, presetBreakRatio, presetStopAfter = 0, 0, false
	})
}

func TestPresetSaveRun(t *testing.T) {
	testEnv(t)
	resetPresetFlags(t)
	presetWork = 50 * time.Minute
	presetSessions = 3

	require.NoError(t, presetSaveRun(context.Background(), "pomodoro"))

	s, err := getStore()
	require.NoError(t, err)
	p, err := s.GetPreset(context.Background(), models.ModePomodoro)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Minute, p.Config.Work)
	assert.Equal(t, 5*time.Minute, p.Config.Break, "unset flags keep the current value")
	assert.Equal(t, 3, p.Config.SessionsUntilLongBreak)
}

func TestPresetSaveRun_Errors(t *testing.T) {
	testEnv(t)
	resetPresetFlags(t)

	err := presetSaveRun(context.Background(), "tomato")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestPresetSaveRun_DryRun(t *testing.T) {
	testEnv(t)
	resetPresetFlags(t)
	dryRun = true
	t.Cleanup(func() { dryRun = false })
	presetWork = time.Hour

	require.NoError(t, presetSaveRun(context.Background(), "timeboxing"))

	s, err := getStore()
	require.NoError(t, err)
	saved, err := s.ListPresets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestPresetDeleteRun(t *testing.T) {
	testEnv(t)
	resetPresetFlags(t)
	presetWork = 15 * time.Minute
	require.NoError(t, presetSaveRun(context.Background(), "meditation"))

	require.NoError(t, presetDeleteRun(context.Background(), "meditation"))

	err := presetDeleteRun(context.Background(), "meditation")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no saved preset")
}

func TestPresetListRun(t *testing.T) {
	testEnv(t)
	resetPresetFlags(t)
	presetWork = 15 * time.Minute
	require.NoError(t, presetSaveRun(context.Background(), "meditation"))

	var buf bytes.Buffer
	ui.Out = &buf
	require.NoError(t, presetListRun(context.Background()))

	out := buf.String()
	for _, m := range models.Modes {
		assert.Contains(t, out, string(m))
	}
	assert.Contains(t, out, "15m0s")
	assert.Contains(t, out, "saved")
	assert.Contains(t, out, "Focus 50m0s, Rest 10m0s")
}

func TestPresetSummary(t *testing.T) {
	tests := []struct {
		cfg  models.SessionConfig
		want string
	}{
		{models.SessionConfig{Mode: models.ModeFlowtime, BreakRatio: 0.2}, "break ratio 0.20"},
		{models.SessionConfig{Mode: models.ModeTimeboxing, Work: 30 * time.Minute, Break: 5 * time.Minute}, "work 30m0s, break 5m0s"},
		{models.SessionConfig{Mode: models.ModeMeditation, Work: 10 * time.Minute}, "10m0s"},
		{models.SessionConfig{
			Mode:                  models.ModeCustomIntervals,
			Intervals:             []models.Interval{{Name: "A", Duration: time.Minute}},
			StopAfterLastInterval: true,
		}, "A 1m0s (once)"},
	}
	for _, tt := range tests {
		t.Run(string(tt.cfg.Mode), func(t *testing.T) {
			assert.Equal(t, tt.want, presetSummary(tt.cfg))
		})
	}
}
