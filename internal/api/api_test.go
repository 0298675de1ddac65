package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/zenclock/internal/models"
	"github.com/joescharf/zenclock/internal/orchestrator"
	"github.com/joescharf/zenclock/internal/store"
)

type testEnv struct {
	srv    *Server
	router http.Handler
	store  store.Store
	orch   *orchestrator.Orchestrator
	clock  *clockwork.FakeClock
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestServer wires a real store and a running orchestrator on a fake clock.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	opts := orchestrator.DefaultOptions()
	opts.Presets = map[models.Mode]models.SessionConfig{
		models.ModePomodoro: {
			Work:                   2 * time.Second,
			Break:                  time.Second,
			LongBreak:              3 * time.Second,
			SessionsUntilLongBreak: 2,
		},
	}
	clock := clockwork.NewFakeClock()
	o := orchestrator.New(opts, clock, nil, quietLogger())
	o.SetRecorder(s)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = o.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	srv := NewServer(o, s, quietLogger())
	return &testEnv{srv: srv, router: srv.Router(), store: s, orch: o, clock: clock}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeUpdate(t *testing.T, w *httptest.ResponseRecorder) orchestrator.Update {
	t.Helper()
	var u orchestrator.Update
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	return u
}

func TestSnapshot_Initial(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "GET", "/api/v1/snapshot", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, models.ModePomodoro, snap.Timer.Mode)
	assert.False(t, snap.Timer.Active)
	assert.Equal(t, "ambient", snap.Audio.Channel)
}

func TestStartSession_Preset(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "POST", "/api/v1/session/start", "")
	require.Equal(t, http.StatusOK, w.Code)

	u := decodeUpdate(t, w)
	assert.True(t, u.Snapshot.Timer.Active)
	assert.Equal(t, models.SessionWork, u.Snapshot.Timer.SessionType)
	assert.Equal(t, 2.0, u.Snapshot.Timer.RemainingSeconds)
}

func TestStartSession_ByMode(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "POST", "/api/v1/session/start", `{"mode":"meditation"}`)
	require.Equal(t, http.StatusOK, w.Code)

	u := decodeUpdate(t, w)
	assert.Equal(t, models.ModeMeditation, u.Snapshot.Timer.Mode)
	assert.True(t, u.Snapshot.Timer.Active)
	assert.Equal(t, 600.0, u.Snapshot.Timer.RemainingSeconds)
}

func TestStartSession_CustomDurations(t *testing.T) {
	env := setupTestServer(t)

	body := `{"mode":"custom","intervals":[{"name":"Sprint","minutes":0.5,"kind":"work"},{"name":"Stretch","minutes":0.25,"kind":"break"}]}`
	w := env.do(t, "POST", "/api/v1/session/start", body)
	require.Equal(t, http.StatusOK, w.Code)

	u := decodeUpdate(t, w)
	assert.Equal(t, models.ModeCustomIntervals, u.Snapshot.Timer.Mode)
	assert.Equal(t, "Sprint", u.Snapshot.Timer.IntervalName)
	assert.Equal(t, 30.0, u.Snapshot.Timer.RemainingSeconds)
}

func TestStartSession_InvalidConfig(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "POST", "/api/v1/session/start", `{"mode":"pomodoro","work_minutes":25}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "break")

	// State is unchanged
	w = env.do(t, "GET", "/api/v1/snapshot", "")
	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.False(t, snap.Timer.Active)
}

func TestStartSession_BadJSON(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "POST", "/api/v1/session/start", `{"mode":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSwitchMode(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "POST", "/api/v1/session/mode", `{"mode":"flowtime"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ModeFlowtime, decodeUpdate(t, w).Snapshot.Timer.Mode)

	w = env.do(t, "POST", "/api/v1/session/mode", `{"mode":"nap"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPauseResumeReset(t *testing.T) {
	env := setupTestServer(t)
	require.Equal(t, http.StatusOK, env.do(t, "POST", "/api/v1/session/start", "").Code)

	w := env.do(t, "POST", "/api/v1/session/pause", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeUpdate(t, w).Snapshot.Timer.Paused)

	w = env.do(t, "POST", "/api/v1/session/resume", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeUpdate(t, w).Snapshot.Timer.Paused)

	w = env.do(t, "POST", "/api/v1/session/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeUpdate(t, w).Snapshot.Timer.Active)
}

func TestBreathing_StartStop(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "POST", "/api/v1/breathing/start", `{"inhale_seconds":2,"hold_seconds":1,"exhale_seconds":2,"cycles":3}`)
	require.Equal(t, http.StatusOK, w.Code)
	b := decodeUpdate(t, w).Snapshot.Breathing
	assert.True(t, b.Active)
	assert.Equal(t, models.PhaseInhale, b.Phase)
	assert.Equal(t, 3, b.TotalCycles)

	w = env.do(t, "POST", "/api/v1/breathing/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeUpdate(t, w).Snapshot.Breathing.Active)

	w = env.do(t, "POST", "/api/v1/breathing/start", `{"inhale_seconds":2,"cycles":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBreathing_DefaultPattern(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "POST", "/api/v1/breathing/start", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, decodeUpdate(t, w).Snapshot.Breathing.TotalCycles)
}

func TestAudio_VolumeAndMute(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "POST", "/api/v1/audio/volume", `{"volume":0.5}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeUpdate(t, w).Snapshot.Audio.Fading)

	w = env.do(t, "POST", "/api/v1/audio/volume", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/api/v1/audio/mute", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeUpdate(t, w).Snapshot.Audio.Muted)

	w = env.do(t, "POST", "/api/v1/audio/mute", `{"muted":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeUpdate(t, w).Snapshot.Audio.Muted)
}

func TestAudio_PlayStop(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "POST", "/api/v1/audio/play", `{"sound":"rain"}`)
	require.Equal(t, http.StatusOK, w.Code)
	a := decodeUpdate(t, w).Snapshot.Audio
	assert.True(t, a.Playing)
	assert.Equal(t, "rain", a.Sound)

	w = env.do(t, "POST", "/api/v1/audio/play", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/api/v1/audio/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeUpdate(t, w).Snapshot.Audio.Fading)
}

func TestHistory_Empty(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "GET", "/api/v1/history", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestHistory_Filters(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, env.store.RecordEvent(ctx, models.Event{Kind: models.EventPhaseCompleted, Source: models.SourceTimer}, at))
	require.NoError(t, env.store.RecordEvent(ctx, models.Event{Kind: models.EventSessionCompleted, Source: models.SourceBreathing, Cycle: 4}, at.Add(time.Minute)))

	w := env.do(t, "GET", "/api/v1/history?source=breathing", "")
	require.Equal(t, http.StatusOK, w.Code)
	var entries []*models.HistoryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 4, entries[0].Event.Cycle)

	w = env.do(t, "GET", "/api/v1/history?since=2026-03-01T09:00:30Z&limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, 1)

	assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/v1/history?since=yesterday", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/v1/history?limit=0", "").Code)
}

func TestHistory_Disabled(t *testing.T) {
	env := setupTestServer(t)
	router := NewServer(env.orch, nil, quietLogger()).Router()

	req := httptest.NewRequest("GET", "/api/v1/history", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPresets_SaveAppliesToOrchestrator(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "PUT", "/api/v1/presets/timeboxing", `{"work_minutes":45,"break_minutes":15}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "GET", "/api/v1/presets", "")
	require.Equal(t, http.StatusOK, w.Code)
	var presets []*models.Preset
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &presets))
	require.Len(t, presets, 1)
	assert.Equal(t, 45*time.Minute, presets[0].Config.Work)

	w = env.do(t, "POST", "/api/v1/session/start", `{"mode":"timeboxing"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2700.0, decodeUpdate(t, w).Snapshot.Timer.RemainingSeconds)
}

func TestPresets_Invalid(t *testing.T) {
	env := setupTestServer(t)

	assert.Equal(t, http.StatusBadRequest, env.do(t, "PUT", "/api/v1/presets/nap", `{"work_minutes":5}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, "PUT", "/api/v1/presets/pomodoro", `{"work_minutes":5}`).Code)
}

func TestCORS(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "OPTIONS", "/api/v1/snapshot", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
