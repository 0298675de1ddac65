package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/zenclock/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. The run loop records events
	// while HTTP handlers read history, so keep a single connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// newULID generates a ULID for the given time. IDs minted within the same
// millisecond still sort in creation order.
func newULID(at time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), entropy).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- History ---

// RecordEvent persists one engine event.
func (s *SQLiteStore) RecordEvent(ctx context.Context, ev models.Event, at time.Time) error {
	at = at.UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (id, kind, source, mode, from_phase, to_phase, completed_sessions, cycle, channel, sound, error, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		newULID(at), string(ev.Kind), string(ev.Source), string(ev.Mode), ev.From, ev.To,
		ev.CompletedSessions, ev.Cycle, ev.Channel, ev.Sound, ev.Error, at,
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// ListHistory returns matching entries, newest first.
func (s *SQLiteStore) ListHistory(ctx context.Context, filter HistoryFilter) ([]*models.HistoryEntry, error) {
	query := `SELECT id, kind, source, mode, from_phase, to_phase, completed_sessions, cycle, channel, sound, error, occurred_at FROM history`
	var conditions []string
	var args []any

	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, string(filter.Source))
	}
	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY occurred_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*models.HistoryEntry
	for rows.Next() {
		e := &models.HistoryEntry{}
		var kind, source, mode string
		if err := rows.Scan(&e.ID, &kind, &source, &mode, &e.Event.From, &e.Event.To,
			&e.Event.CompletedSessions, &e.Event.Cycle, &e.Event.Channel, &e.Event.Sound, &e.Event.Error,
			&e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Event.Kind = models.EventKind(kind)
		e.Event.Source = models.EventSource(source)
		e.Event.Mode = models.Mode(mode)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PruneHistory deletes entries older than before and reports how many went.
func (s *SQLiteStore) PruneHistory(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM history WHERE occurred_at < ?", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return result.RowsAffected()
}

// --- Presets ---

// SavePreset inserts or replaces the preset for p.Mode.
func (s *SQLiteStore) SavePreset(ctx context.Context, p *models.Preset) error {
	if !p.Mode.Valid() {
		return fmt.Errorf("save preset: unknown mode %q", p.Mode)
	}
	p.Config.Mode = p.Mode
	if err := p.Config.Validate(); err != nil {
		return fmt.Errorf("save preset: %w", err)
	}
	data, err := json.Marshal(p.Config)
	if err != nil {
		return fmt.Errorf("encode preset: %w", err)
	}
	p.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO presets (mode, config_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(mode) DO UPDATE SET config_json = excluded.config_json, updated_at = excluded.updated_at`,
		string(p.Mode), string(data), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save preset: %w", err)
	}
	return nil
}

// GetPreset returns the saved preset for mode or ErrNotFound.
func (s *SQLiteStore) GetPreset(ctx context.Context, mode models.Mode) (*models.Preset, error) {
	var data string
	p := &models.Preset{Mode: mode}
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json, updated_at FROM presets WHERE mode = ?", string(mode),
	).Scan(&data, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("preset %s: %w", mode, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get preset: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &p.Config); err != nil {
		return nil, fmt.Errorf("decode preset %s: %w", mode, err)
	}
	return p, nil
}

// ListPresets returns every saved preset ordered by mode.
func (s *SQLiteStore) ListPresets(ctx context.Context) ([]*models.Preset, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT mode, config_json, updated_at FROM presets ORDER BY mode")
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var presets []*models.Preset
	for rows.Next() {
		p := &models.Preset{}
		var mode, data string
		if err := rows.Scan(&mode, &data, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		p.Mode = models.Mode(mode)
		if err := json.Unmarshal([]byte(data), &p.Config); err != nil {
			return nil, fmt.Errorf("decode preset %s: %w", mode, err)
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

// DeletePreset removes the saved preset for mode.
func (s *SQLiteStore) DeletePreset(ctx context.Context, mode models.Mode) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM presets WHERE mode = ?", string(mode))
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("preset %s: %w", mode, ErrNotFound)
	}
	return nil
}
