package store

import (
	"context"
	"errors"
	"time"

	"github.com/joescharf/zenclock/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// HistoryFilter specifies filters for listing history entries.
type HistoryFilter struct {
	Source models.EventSource
	Kind   models.EventKind
	Since  time.Time
	Limit  int
}

// Store defines the persistence interface for zenclock.
type Store interface {
	// History
	RecordEvent(ctx context.Context, ev models.Event, at time.Time) error
	ListHistory(ctx context.Context, filter HistoryFilter) ([]*models.HistoryEntry, error)
	PruneHistory(ctx context.Context, before time.Time) (int64, error)

	// Presets
	SavePreset(ctx context.Context, p *models.Preset) error
	GetPreset(ctx context.Context, mode models.Mode) (*models.Preset, error)
	ListPresets(ctx context.Context) ([]*models.Preset, error)
	DeletePreset(ctx context.Context, mode models.Mode) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
