package storage

import (
	"context"
	"fmt"
	"strings"
)

// Backend kinds accepted by OpenBackend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// ScanEntry is one record visited by Backend.Scan. Err is set when the record exists but
// could not be read; the scan continues past it.
type ScanEntry struct {
	ID   string
	Data []byte
	Err  error
}

// Backend is a durable key/value store of encoded session records.
type Backend interface {
	// Put replaces the record for id atomically.
	Put(ctx context.Context, id string, data []byte) error
	// Get returns the record for id and whether it exists.
	Get(ctx context.Context, id string) ([]byte, bool, error)
	// Delete removes the record for id and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
	// Scan visits every stored record. An error returned by fn stops the scan.
	Scan(ctx context.Context, fn func(ScanEntry) error) error
	Close() error
}

// DirBackend is implemented by backends whose records live in a watchable directory.
type DirBackend interface {
	Backend
	Dir() string
}

// OpenBackend opens the backend named by kind.
func OpenBackend(kind, dir, dbPath string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", BackendFile:
		return NewFileBackend(dir)
	case BackendSQLite:
		return NewSQLiteBackend(dbPath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q (must be: file, sqlite)", kind)
	}
}
