// Package watcher watches pipeline directories and signals, debounced, when a
// pipeline file changes.
package watcher

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/passflow/internal/log"
)

// Watcher monitors a directory for pipeline file changes.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	dir        string
	extensions []string
	debounce   time.Duration
	onChange   chan struct{}
	done       chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	Dir         string
	DebounceDur time.Duration
	// Extensions limits which files count as changes. Empty means .yaml and .yml.
	Extensions []string
}

// DefaultConfig returns the watcher defaults for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		DebounceDur: 500 * time.Millisecond,
	}
}

// New creates a watcher. Call Start to begin receiving notifications.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = []string{".yaml", ".yml"}
	}
	return &Watcher{
		fsWatcher:  fsw,
		dir:        cfg.Dir,
		extensions: exts,
		debounce:   cfg.DebounceDur,
		onChange:   make(chan struct{}, 1),
		done:       make(chan struct{}),
	}, nil
}

// Start begins watching the directory. The returned channel receives one
// signal per burst of changes.
func (w *Watcher) Start() (<-chan struct{}, error) {
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", w.dir, err)
	}
	log.Debug(log.CatWatcher, "watching pipelines", "dir", w.dir, "debounce", w.debounce)

	go w.loop()

	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending bool
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}
			log.Debug(log.CatWatcher, "pipeline file event", "file", event.Name, "op", event.Op.String())

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = true

		case <-timerC(timer):
			if pending {
				// Drop if the consumer has not read the previous signal yet.
				select {
				case w.onChange <- struct{}{}:
				default:
				}
				pending = false
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "watch error", err, "dir", w.dir)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

// isRelevantEvent reports whether the event touches a pipeline file. Removes
// and renames count so that deleting a pipeline triggers a reload.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return slices.Contains(w.extensions, strings.ToLower(filepath.Ext(base)))
}
