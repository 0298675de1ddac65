package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/joescharf/zenclock/internal/orchestrator"
)

// events streams every published update as a server-sent event. The current
// snapshot is sent first so clients render immediately.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	updates, unsubscribe := s.ctrl.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, orchestrator.Update{Snapshot: s.ctrl.Latest()}); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, u); err != nil {
				s.logger.Debug("event stream closed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, u orchestrator.Update) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: update\ndata: %s\n\n", data)
	return err
}
