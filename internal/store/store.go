// Package store persists named settings presets in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrPresetNotFound is returned when a user has no preset with the requested name.
var ErrPresetNotFound = errors.New("preset not found")

// Preset is a named settings bundle owned by one user
type Preset struct {
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Body      json.RawMessage `json:"body"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store wraps the presets database
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the presets database at path.
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store path is required")
	}

	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		dsn = filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close releases the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS presets (
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		body TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, name)
	)`)
	return err
}

// SavePreset inserts or replaces a preset
func (s *Store) SavePreset(ctx context.Context, p Preset) (Preset, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.UserID == "" || p.Name == "" {
		return Preset{}, fmt.Errorf("user id and preset name are required")
	}
	if !json.Valid(p.Body) {
		return Preset{}, fmt.Errorf("preset body is not valid JSON")
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	p.UpdatedAt = p.UpdatedAt.UTC().Truncate(time.Millisecond)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO presets (user_id, name, body, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		p.UserID, p.Name, string(p.Body), p.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return Preset{}, fmt.Errorf("save preset: %w", err)
	}
	return p, nil
}

// LoadPreset returns one preset of a user
func (s *Store) LoadPreset(ctx context.Context, userID, name string) (Preset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, name, body, updated_at FROM presets WHERE user_id = ? AND name = ?`,
		userID, strings.TrimSpace(name),
	)
	p, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Preset{}, ErrPresetNotFound
	}
	if err != nil {
		return Preset{}, fmt.Errorf("load preset: %w", err)
	}
	return p, nil
}

// ListPresets returns a user's presets ordered by name
func (s *Store) ListPresets(ctx context.Context, userID string) ([]Preset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, name, body, updated_at FROM presets WHERE user_id = ? ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	presets := make([]Preset, 0)
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

// DeletePreset removes a preset, reporting ErrPresetNotFound if absent
func (s *Store) DeletePreset(ctx context.Context, userID, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM presets WHERE user_id = ? AND name = ?`,
		userID, strings.TrimSpace(name),
	)
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrPresetNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPreset(row scanner) (Preset, error) {
	var p Preset
	var body string
	var updated int64
	if err := row.Scan(&p.UserID, &p.Name, &body, &updated); err != nil {
		return Preset{}, err
	}
	p.Body = json.RawMessage(body)
	p.UpdatedAt = time.UnixMilli(updated).UTC()
	return p, nil
}
