package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/neboloop/promptpulse/internal/logging"
)

const reloadDebounce = 200 * time.Millisecond

// Watcher reloads the user config file when it changes on disk.
type Watcher struct {
	base     []byte
	path     string
	dataDir  string
	onChange func(Config)
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

// Watch starts watching path. The directory is watched rather than the file
// so editors that replace the file are picked up. onChange receives every
// successfully reloaded config; invalid edits are logged and ignored.
func Watch(base []byte, path, dataDir string, onChange func(Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	w := &Watcher{
		base:     base,
		path:     path,
		dataDir:  dataDir,
		onChange: onChange,
		watcher:  fw,
		logger:   logging.With("config"),
		done:     make(chan struct{}),
	}
	go w.loop()
	w.logger.Info("watching config", "path", path)
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	name := filepath.Base(w.path)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(reloadDebounce, w.reload)
}

func (w *Watcher) reload() {
	c, err := Load(w.base, w.path, w.dataDir)
	if err != nil {
		w.logger.Warn("config reload rejected", "error", err)
		return
	}
	w.logger.Info("config reloaded")
	w.onChange(c)
}

// Close stops watching.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}
