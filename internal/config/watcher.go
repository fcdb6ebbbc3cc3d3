package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const reloadDebounce = 2 * time.Second

// DatasetWatcher monitors the reference dataset files (graph, policies,
// incidents) and invokes a reload callback when any of them changes. The
// callback is expected to rebuild the engine from a fresh snapshot; the
// running engine keeps serving its existing snapshot until then.
type DatasetWatcher struct {
	paths    []string
	watcher  *fsnotify.Watcher
	onChange func()
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewDatasetWatcher creates a watcher over the dataset files named in cfg.
func NewDatasetWatcher(cfg *Config, onChange func()) (*DatasetWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &DatasetWatcher{
		paths:    []string{cfg.GraphPath, cfg.PolicyPath, cfg.IncidentPath},
		watcher:  watcher,
		onChange: onChange,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins watching. Directories are watched rather than the files
// themselves so atomic rename-style rewrites are still observed.
func (w *DatasetWatcher) Start() error {
	dirs := map[string]bool{}
	for _, p := range w.paths {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			log.Warn().Err(err).Str("path", dir).Msg("Failed to watch dataset directory")
		}
	}

	go w.loop()
	log.Info().Strs("paths", w.paths).Msg("Watching reference datasets for changes")
	return nil
}

// Stop stops the watcher.
func (w *DatasetWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.watcher.Close()
	})
}

func (w *DatasetWatcher) loop() {
	var timer *time.Timer
	for {
		select {
		case <-w.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.watched(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Info().Str("path", event.Name).Str("op", event.Op.String()).Msg("Reference dataset changed")
			// Debounce: editors and atomic writes produce event bursts.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, w.onChange)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Dataset watcher error")
		}
	}
}

func (w *DatasetWatcher) watched(name string) bool {
	for _, p := range w.paths {
		if filepath.Clean(name) == filepath.Clean(p) {
			return true
		}
	}
	return false
}
