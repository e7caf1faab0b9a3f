package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// reloadDelay coalesces the burst of filesystem events editors produce
// when saving a file.
const reloadDelay = 250 * time.Millisecond

// Watcher reloads the configuration when its file changes on disk.
// Editors typically replace the file (rename plus create), so the parent
// directory is watched rather than the file itself.
type Watcher struct {
	path     string
	log      zerolog.Logger
	onChange func(*Config)

	fw        *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher watches path and invokes onChange with each successfully
// reloaded configuration. Reload failures keep the previous configuration.
func NewWatcher(path string, log zerolog.Logger, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		path:     path,
		log:      log.With().Str("component", "config").Logger(),
		onChange: onChange,
		fw:       fw,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.fw.Close()
	})
}

func (w *Watcher) run() {
	var pending <-chan time.Time

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(reloadDelay)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("config watcher error")
		case <-pending:
			pending = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFromPath(w.path)
	if err != nil {
		w.log.Warn().Err(err).Msg("config reload failed, keeping previous configuration")
		return
	}
	w.log.Info().Msg("configuration reloaded")
	w.onChange(cfg)
}
