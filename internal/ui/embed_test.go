package ui

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	h, err := Handler()
	require.NoError(t, err)

	tests := []struct {
		name     string
		method   string
		path     string
		wantCode int
		wantBody string
	}{
		{"index", http.MethodGet, "/", http.StatusOK, "<title>zenclock</title>"},
		{"script", http.MethodGet, "/app.js", http.StatusOK, "EventSource"},
		{"stylesheet", http.MethodGet, "/style.css", http.StatusOK, ".orb"},
		{"client route", http.MethodGet, "/breathe", http.StatusOK, "<title>zenclock</title>"},
		{"missing asset", http.MethodGet, "/logo.png", http.StatusNotFound, ""},
		{"api path", http.MethodGet, "/api/v1/unknown", http.StatusNotFound, ""},
		{"post", http.MethodPost, "/", http.StatusMethodNotAllowed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestDistFS(t *testing.T) {
	sub, err := DistFS()
	require.NoError(t, err)

	for _, name := range []string{"index.html", "app.js", "style.css"} {
		f, err := sub.Open(name)
		require.NoError(t, err, name)
		_ = f.Close()
	}
}
