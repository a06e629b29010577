package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"PriceWatch/internal/domain/models"

	_ "modernc.org/sqlite"
)

// SQLiteAlertStore keeps alert lists in a single key/value table. It suits
// single-node deployments that have no Redis.
type SQLiteAlertStore struct {
	db *sql.DB
}

// NewSQLiteAlertStore opens (or creates) the database at path and migrates it.
func NewSQLiteAlertStore(path string) (*SQLiteAlertStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: SQLite has a single writer, and ":memory:" databases
	// are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteAlertStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteAlertStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`)
	return err
}

func (s *SQLiteAlertStore) Load(ctx context.Context, itemKey string) ([]models.Alert, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, AlertKey(itemKey)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []models.Alert{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", models.ErrStorageFailure, itemKey, err)
	}

	alerts := []models.Alert{}
	if err := json.Unmarshal([]byte(raw), &alerts); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", models.ErrStorageFailure, itemKey, err)
	}
	return alerts, nil
}

func (s *SQLiteAlertStore) Save(ctx context.Context, itemKey string, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return s.Clear(ctx, itemKey)
	}
	b, err := json.Marshal(alerts)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", models.ErrStorageFailure, itemKey, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		AlertKey(itemKey), string(b), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("%w: save %s: %w", models.ErrStorageFailure, itemKey, err)
	}
	return nil
}

func (s *SQLiteAlertStore) Clear(ctx context.Context, itemKey string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, AlertKey(itemKey)); err != nil {
		return fmt.Errorf("%w: clear %s: %w", models.ErrStorageFailure, itemKey, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteAlertStore) Close() error {
	return s.db.Close()
}
