package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reloads the engine index when records are changed behind its back, e.g. by a
// second process or a user editing the store directory by hand. Bursts of events are
// debounced into one reload.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	onChange func()
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	stopCh  chan struct{}
	done    chan struct{}
	// running tracks onChange calls that started before Stop.
	running sync.WaitGroup
}

// NewWatcher watches dir and calls onChange after record files settle.
func NewWatcher(dir string, debounce time.Duration, logger zerolog.Logger, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	w := &Watcher{
		watcher:  fsw,
		logger:   logger,
		onChange: onChange,
		debounce: debounce,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}

	go w.run()

	return w, nil
}

// Stop stops watching. Pending reloads are cancelled and a reload already running is
// waited for.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.stopCh)
	err := w.watcher.Close()
	<-w.done
	w.running.Wait()
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			name := filepath.Base(event.Name)
			if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordExt) {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.logger.Debug().
					Str("file", name).
					Str("op", event.Op.String()).
					Msg("Record change detected")

				w.scheduleChange()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Record watcher error")

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) scheduleChange() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.running.Add(1)
	w.mu.Unlock()

	defer w.running.Done()
	w.onChange()
}

// Watch starts reloading the index whenever the backend directory changes. It requires a
// backend that stores records in a directory. Calling Watch twice is a no-op.
func (e *Engine) Watch(debounce time.Duration) error {
	dirBackend, ok := e.backend.(DirBackend)
	if !ok {
		return errors.New("storage backend does not support watching")
	}

	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	if e.watcher != nil {
		return nil
	}

	w, err := NewWatcher(dirBackend.Dir(), debounce, e.logger, func() {
		if _, err := e.Reload(context.Background()); err != nil {
			e.logger.Error().Err(err).Msg("Reload after external change failed")
		}
	})
	if err != nil {
		return err
	}
	e.watcher = w

	e.logger.Info().Str("dir", dirBackend.Dir()).Msg("Watching session store for external changes")
	return nil
}
