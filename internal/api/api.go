package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/joescharf/zenclock/internal/models"
	"github.com/joescharf/zenclock/internal/orchestrator"
	"github.com/joescharf/zenclock/internal/store"
)

// Controller is the part of the orchestrator the API drives.
type Controller interface {
	Submit(ctx context.Context, cmd orchestrator.Command) ([]models.Event, error)
	Latest() models.Snapshot
	Subscribe() (<-chan orchestrator.Update, func())
}

// Server provides the REST API handlers.
type Server struct {
	ctrl   Controller
	store  store.Store
	logger *slog.Logger
}

// NewServer creates a new API server.
// The store may be nil when history is disabled.
func NewServer(ctrl Controller, s store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{ctrl: ctrl, store: s, logger: logger}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/session/start", s.startSession)
	mux.HandleFunc("POST /api/v1/session/pause", s.simple(orchestrator.PauseSession{}))
	mux.HandleFunc("POST /api/v1/session/resume", s.simple(orchestrator.ResumeSession{}))
	mux.HandleFunc("POST /api/v1/session/reset", s.simple(orchestrator.ResetSession{}))
	mux.HandleFunc("POST /api/v1/session/mode", s.switchMode)

	mux.HandleFunc("POST /api/v1/breathing/start", s.startBreathing)
	mux.HandleFunc("POST /api/v1/breathing/stop", s.simple(orchestrator.StopBreathing{}))

	mux.HandleFunc("POST /api/v1/audio/volume", s.setVolume)
	mux.HandleFunc("POST /api/v1/audio/mute", s.setMuted)
	mux.HandleFunc("POST /api/v1/audio/play", s.playSound)
	mux.HandleFunc("POST /api/v1/audio/stop", s.simple(orchestrator.StopSound{}))

	mux.HandleFunc("GET /api/v1/snapshot", s.snapshot)
	mux.HandleFunc("GET /api/v1/events", s.events)

	mux.HandleFunc("GET /api/v1/history", s.listHistory)
	mux.HandleFunc("GET /api/v1/presets", s.listPresets)
	mux.HandleFunc("PUT /api/v1/presets/{mode}", s.savePreset)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeOptional decodes a JSON body into v. An empty body leaves v untouched.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// commandStatus maps a command error onto an HTTP status.
func commandStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidConfig),
		errors.Is(err, orchestrator.ErrNoPreset),
		errors.Is(err, orchestrator.ErrUnknownCommand):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// submit runs the commands in order and writes the resulting snapshot and events.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, cmds ...orchestrator.Command) {
	var events []models.Event
	for _, cmd := range cmds {
		evs, err := s.ctrl.Submit(r.Context(), cmd)
		if err != nil {
			status := commandStatus(err)
			if status == http.StatusInternalServerError {
				s.logger.Error("command failed", "command", cmd, "error", err)
			}
			writeError(w, status, err.Error())
			return
		}
		events = append(events, evs...)
	}
	writeJSON(w, http.StatusOK, orchestrator.Update{Snapshot: s.ctrl.Latest(), Events: events})
}

func (s *Server) simple(cmd orchestrator.Command) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.submit(w, r, cmd)
	}
}

// --- Session ---

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req models.SessionRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	switch {
	case req.HasDurations():
		cfg := req.Config()
		if cfg.Mode == "" {
			cfg.Mode = s.ctrl.Latest().Timer.Mode
		}
		s.submit(w, r, orchestrator.StartSession{Config: cfg})
	case req.Mode != "":
		s.submit(w, r, orchestrator.SwitchMode{Mode: req.Mode}, orchestrator.StartSession{})
	default:
		s.submit(w, r, orchestrator.StartSession{})
	}
}

func (s *Server) switchMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode models.Mode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !req.Mode.Valid() {
		writeError(w, http.StatusBadRequest, "unknown mode: "+string(req.Mode))
		return
	}
	s.submit(w, r, orchestrator.SwitchMode{Mode: req.Mode})
}

// --- Breathing ---

func (s *Server) startBreathing(w http.ResponseWriter, r *http.Request) {
	var req models.BreathingRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.submit(w, r, orchestrator.StartBreathing{Config: req.Config()})
}

// --- Audio ---

func (s *Server) setVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume *float64 `json:"volume"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Volume == nil {
		writeError(w, http.StatusBadRequest, "volume is required")
		return
	}
	s.submit(w, r, orchestrator.SetVolume{Volume: *req.Volume})
}

func (s *Server) setMuted(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Muted bool `json:"muted"`
	}{Muted: true}
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.submit(w, r, orchestrator.SetMuted{Muted: req.Muted})
}

func (s *Server) playSound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sound string `json:"sound"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Sound == "" {
		writeError(w, http.StatusBadRequest, "sound is required")
		return
	}
	s.submit(w, r, orchestrator.PlaySound{Sound: req.Sound})
}

// --- State ---

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Latest())
}

// --- History & presets ---

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "history is disabled")
		return
	}

	q := r.URL.Query()
	filter := store.HistoryFilter{
		Source: models.EventSource(q.Get("source")),
		Kind:   models.EventKind(q.Get("kind")),
		Limit:  100,
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		filter.Since = since
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	entries, err := s.store.ListHistory(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*models.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) listPresets(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "presets are disabled")
		return
	}
	presets, err := s.store.ListPresets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if presets == nil {
		presets = []*models.Preset{}
	}
	writeJSON(w, http.StatusOK, presets)
}

// savePreset stores a preset and applies it to the running orchestrator.
func (s *Server) savePreset(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "presets are disabled")
		return
	}
	mode := models.Mode(r.PathValue("mode"))
	if !mode.Valid() {
		writeError(w, http.StatusBadRequest, "unknown mode: "+string(mode))
		return
	}

	var req models.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p := &models.Preset{Mode: mode, Config: req.Config()}
	if err := s.store.SavePreset(r.Context(), p); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrInvalidConfig) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	cmd := orchestrator.ApplyPresets{Presets: map[models.Mode]models.SessionConfig{mode: p.Config}}
	if _, err := s.ctrl.Submit(r.Context(), cmd); err != nil {
		writeError(w, commandStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}
