package main

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/good-yellow-bee/salescope/internal/analytics"
)

// watchConfig watches the config file and applies detection threshold
// changes without a restart. Editors often replace the file rather than
// write it in place, so the parent directory is watched and events are
// filtered by name. Returns a function that stops the watcher.
func watchConfig(path string, detector *analytics.Detector, logger *log.Logger) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch config directory: %w", err)
	}

	done := make(chan struct{})
	go func() {
		// Atomic saves produce bursts of events, debounce before reloading.
		var pending <-chan time.Time
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != absPath {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					pending = time.After(500 * time.Millisecond)
				}
			case <-pending:
				pending = nil
				reloadThresholds(absPath, detector, logger)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Printf("config watch error: %v", err)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}

func reloadThresholds(path string, detector *analytics.Detector, logger *log.Logger) {
	cfg, err := LoadConfig(path)
	if err != nil {
		logger.Printf("config reload failed, keeping current thresholds: %v", err)
		return
	}
	thresholds := analytics.Thresholds{
		WarningZ:  cfg.Analytics.WarningZ,
		CriticalZ: cfg.Analytics.CriticalZ,
	}
	if err := detector.SetThresholds(thresholds); err != nil {
		logger.Printf("config reload rejected: %v", err)
		return
	}
	logger.Printf("detection thresholds updated: warning=%.2f critical=%.2f",
		thresholds.WarningZ, thresholds.CriticalZ)
}
