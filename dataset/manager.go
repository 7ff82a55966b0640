package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Manager owns the shared dataset: it loads the file once, caches the frame
// and its schema description, and can watch the file for changes. Callers
// get read-only views; the manager's copy is never handed out for mutation.
type Manager struct {
	path   string
	logger *zap.Logger

	mu     sync.RWMutex
	frame  *Frame
	schema string
}

// NewManager creates a manager for the dataset file at path. The file is not
// read until the first Frame or Schema call.
func NewManager(path string, logger *zap.Logger) *Manager {
	return &Manager{path: path, logger: logger}
}

// Load reads the dataset file, replacing any cached frame.
func (m *Manager) Load() error {
	frame, err := LoadCSV(m.path)
	if err != nil {
		return err
	}
	schema := Schema(frame)

	m.mu.Lock()
	m.frame = frame
	m.schema = schema
	m.mu.Unlock()

	m.logger.Info("dataset loaded",
		zap.String("path", m.path),
		zap.Int("rows", frame.NumRows()),
		zap.Int("columns", frame.NumCols()))
	return nil
}

func (m *Manager) ensure() error {
	m.mu.RLock()
	loaded := m.frame != nil
	m.mu.RUnlock()
	if loaded {
		return nil
	}
	return m.Load()
}

// Frame returns the current frame. Frames are immutable, so the returned
// value is safe to share across concurrent queries.
func (m *Manager) Frame() (*Frame, error) {
	if err := m.ensure(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frame, nil
}

// Schema returns the cached schema description.
func (m *Manager) Schema() (string, error) {
	if err := m.ensure(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.schema, nil
}

// Watch reloads the dataset whenever the file is rewritten. It blocks until
// ctx is cancelled and is meant to run on its own goroutine.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create dataset watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files rather than write in place.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(m.path), err)
	}

	target := filepath.Clean(m.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			m.logger.Info("dataset file changed, reloading", zap.String("path", m.path))
			if err := m.Load(); err != nil {
				m.logger.Error("dataset reload failed", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("dataset watcher error", zap.Error(err))
		}
	}
}
