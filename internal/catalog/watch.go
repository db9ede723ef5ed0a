package catalog

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a catalog file into a Store whenever it changes on disk.
// The parent directory is watched so that editors which replace the file
// by rename are picked up too.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	store   *Store
	log     *zap.Logger
}

func NewWatcher(path string, store *Store, log *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, err
	}
	return &Watcher{watcher: w, path: abs, store: store, log: log}, nil
}

// Run blocks until ctx is done or the underlying watcher closes.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("catalog watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	m, err := Load(w.path)
	if err != nil {
		// keep serving the last good copy
		w.log.Warn("catalog reload failed", zap.String("path", w.path), zap.Error(err))
	} else {
		w.store.Set(m)
		w.log.Info("catalog reloaded", zap.String("path", w.path))
	}
}

// Stop closes the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}
