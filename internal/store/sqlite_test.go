package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/zenclock/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Running migrate again should be a no-op
	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

// --- History ---

func TestRecordEvent_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 25, 0, 0, time.UTC)

	ev := models.Event{
		Kind:              models.EventPhaseCompleted,
		Source:            models.SourceTimer,
		Mode:              models.ModePomodoro,
		From:              "work",
		To:                "break",
		CompletedSessions: 1,
	}
	require.NoError(t, s.RecordEvent(ctx, ev, at))

	entries, err := s.ListHistory(ctx, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, ev, entries[0].Event)
	assert.True(t, entries[0].OccurredAt.Equal(at))
}

func TestListHistory_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	events := []models.Event{
		{Kind: models.EventPhaseCompleted, Source: models.SourceTimer, From: "work", To: "break"},
		{Kind: models.EventPhaseCompleted, Source: models.SourceBreathing, From: "inhale", To: "hold"},
		{Kind: models.EventSessionCompleted, Source: models.SourceBreathing, Cycle: 4},
		{Kind: models.EventPlaybackFailed, Source: models.SourceAudio, Channel: "ambient", Sound: "rain", Error: "device busy"},
	}
	for i, ev := range events {
		require.NoError(t, s.RecordEvent(ctx, ev, base.Add(time.Duration(i)*time.Minute)))
	}

	tests := []struct {
		name   string
		filter HistoryFilter
		want   []models.EventKind
	}{
		{"all newest first", HistoryFilter{}, []models.EventKind{
			models.EventPlaybackFailed, models.EventSessionCompleted, models.EventPhaseCompleted, models.EventPhaseCompleted,
		}},
		{"by source", HistoryFilter{Source: models.SourceBreathing}, []models.EventKind{
			models.EventSessionCompleted, models.EventPhaseCompleted,
		}},
		{"by kind", HistoryFilter{Kind: models.EventPlaybackFailed}, []models.EventKind{models.EventPlaybackFailed}},
		{"since", HistoryFilter{Since: base.Add(2 * time.Minute)}, []models.EventKind{
			models.EventPlaybackFailed, models.EventSessionCompleted,
		}},
		{"limit", HistoryFilter{Limit: 1}, []models.EventKind{models.EventPlaybackFailed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := s.ListHistory(ctx, tt.filter)
			require.NoError(t, err)
			var got []models.EventKind
			for _, e := range entries {
				got = append(got, e.Event.Kind)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListHistory_SameInstantKeepsInsertOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordEvent(ctx, models.Event{Kind: models.EventPhaseCompleted, Source: models.SourceTimer}, at))
	require.NoError(t, s.RecordEvent(ctx, models.Event{Kind: models.EventSessionCompleted, Source: models.SourceTimer}, at))

	entries, err := s.ListHistory(ctx, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.EventSessionCompleted, entries[0].Event.Kind)
}

func TestPruneHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		ev := models.Event{Kind: models.EventPhaseCompleted, Source: models.SourceTimer}
		require.NoError(t, s.RecordEvent(ctx, ev, base.Add(time.Duration(i)*time.Hour)))
	}

	n, err := s.PruneHistory(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	entries, err := s.ListHistory(ctx, HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// --- Presets ---

func TestPresetCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.Preset{
		Mode: models.ModeCustomIntervals,
		Config: models.SessionConfig{
			Intervals: []models.Interval{
				{Name: "Deep work", Duration: 90 * time.Minute, Kind: models.IntervalWork},
				{Name: "Walk", Duration: 15 * time.Minute, Kind: models.IntervalBreak},
			},
			StopAfterLastInterval: true,
		},
	}
	require.NoError(t, s.SavePreset(ctx, p))
	assert.False(t, p.UpdatedAt.IsZero())

	got, err := s.GetPreset(ctx, models.ModeCustomIntervals)
	require.NoError(t, err)
	assert.Equal(t, models.ModeCustomIntervals, got.Config.Mode)
	assert.Equal(t, p.Config.Intervals, got.Config.Intervals)
	assert.True(t, got.Config.StopAfterLastInterval)

	// Saving again replaces the existing row
	p.Config.StopAfterLastInterval = false
	require.NoError(t, s.SavePreset(ctx, p))
	got, err = s.GetPreset(ctx, models.ModeCustomIntervals)
	require.NoError(t, err)
	assert.False(t, got.Config.StopAfterLastInterval)

	require.NoError(t, s.SavePreset(ctx, &models.Preset{
		Mode:   models.ModeMeditation,
		Config: models.SessionConfig{Work: 20 * time.Minute},
	}))
	presets, err := s.ListPresets(ctx)
	require.NoError(t, err)
	require.Len(t, presets, 2)
	assert.Equal(t, models.ModeCustomIntervals, presets[0].Mode)
	assert.Equal(t, models.ModeMeditation, presets[1].Mode)

	require.NoError(t, s.DeletePreset(ctx, models.ModeMeditation))
	_, err = s.GetPreset(ctx, models.ModeMeditation)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeletePreset(ctx, models.ModeMeditation), ErrNotFound)
}

func TestSavePreset_RejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.SavePreset(ctx, &models.Preset{Mode: models.ModePomodoro})
	assert.ErrorIs(t, err, models.ErrInvalidConfig)

	err = s.SavePreset(ctx, &models.Preset{Mode: "nap", Config: models.SessionConfig{Work: time.Minute}})
	assert.Error(t, err)

	presets, err := s.ListPresets(ctx)
	require.NoError(t, err)
	assert.Empty(t, presets)
}

func TestStore_SatisfiesInterface(t *testing.T) {
	var _ Store = newTestStore(t)
}
