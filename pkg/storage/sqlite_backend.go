package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteBackend stores each record as a row of the session_records table.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

// NewSQLiteBackend opens or creates the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// single writer; the engine serializes mutations anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=FULL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS session_records (
			id TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteBackend{db: db, path: path}, nil
}

func (b *SQLiteBackend) Put(ctx context.Context, id string, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO session_records (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, id, data, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Get(ctx context.Context, id string) ([]byte, bool, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx, "SELECT data FROM session_records WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query record: %w", err)
	}
	return data, true, nil
}

func (b *SQLiteBackend) Delete(ctx context.Context, id string) (bool, error) {
	res, err := b.db.ExecContext(ctx, "DELETE FROM session_records WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func (b *SQLiteBackend) Scan(ctx context.Context, fn func(ScanEntry) error) error {
	rows, err := b.db.QueryContext(ctx, "SELECT id, data FROM session_records ORDER BY id")
	if err != nil {
		return fmt.Errorf("failed to scan records: %w", err)
	}
	defer rows.Close()

	// collect first so fn may call back into the backend without holding the connection
	var entries []ScanEntry
	for rows.Next() {
		var entry ScanEntry
		if err := rows.Scan(&entry.ID, &entry.Data); err != nil {
			entry.Err = err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to scan records: %w", err)
	}
	rows.Close()

	for _, entry := range entries {
		if err := fn(entry); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the database file path.
func (b *SQLiteBackend) Path() string {
	return b.path
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
