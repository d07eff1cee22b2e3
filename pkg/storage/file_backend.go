package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	recordExt = ".json"
	tempExt   = ".tmp"
)

// FileBackend stores each record as <dir>/<id>.json. Writes go to a temp file in the same
// directory which is synced and renamed over the target, so a crash leaves either the old or
// the new record and never a torn one.
type FileBackend struct {
	dir string
}

// NewFileBackend creates dir if needed and returns a backend rooted there.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, errors.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// Dir returns the directory holding the records.
func (b *FileBackend) Dir() string {
	return b.dir
}

func (b *FileBackend) path(id string) string {
	return filepath.Join(b.dir, id+recordExt)
}

func (b *FileBackend) Put(ctx context.Context, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.dir, "."+id+".*"+tempExt)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close record: %w", err)
	}
	if err := os.Rename(tmpName, b.path(id)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace record: %w", err)
	}

	b.syncDir()
	return nil
}

// syncDir makes the rename durable. Not every platform supports syncing a directory, so
// failures are ignored.
func (b *FileBackend) syncDir() {
	d, err := os.Open(b.dir)
	if err != nil {
		return
	}
	d.Sync()
	d.Close()
}

func (b *FileBackend) Get(ctx context.Context, id string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(b.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read record: %w", err)
	}
	return data, true, nil
}

func (b *FileBackend) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := os.Remove(b.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}
	b.syncDir()
	return true, nil
}

// Scan visits records in id order. Temp files and foreign files are ignored.
func (b *FileBackend) Scan(ctx context.Context, fn func(ScanEntry) error) error {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return fmt.Errorf("failed to list storage directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordExt) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		id := strings.TrimSuffix(name, recordExt)
		data, err := os.ReadFile(filepath.Join(b.dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			// removed between listing and reading
			continue
		}
		if err := fn(ScanEntry{ID: id, Data: data, Err: err}); err != nil {
			return err
		}
	}
	return nil
}

func (b *FileBackend) Close() error {
	return nil
}
