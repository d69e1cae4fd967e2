// Package watch notifies a caller when the on-disk JSONL bank file
// changes, so a long-running process can reload it without restarting.
// It is never invoked by internal/engine itself: the engine owns no
// goroutines, so wiring a watcher to an Engine's LoadLocalBank call is
// the caller's responsibility — see cmd/mcqragctl's serve subcommand.
package watch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits after the last detected change
// before calling onChange, coalescing the write-then-rename pattern many
// editors and atomic-save routines produce into a single notification.
const DefaultDebounce = 200 * time.Millisecond

// Watch watches path for writes, creates and renames and calls onChange after
// DefaultDebounce of quiet following the last detected event. It returns
// a stop function that releases the underlying fsnotify watcher; safe to
// call more than once.
func Watch(path string, onChange func()) (stop func() error, err error) {
	return WatchWithDebounce(path, onChange, DefaultDebounce)
}

// WatchWithDebounce is Watch with an explicit debounce window.
func WatchWithDebounce(path string, onChange func(), debounce time.Duration) (stop func() error, err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch: add directory %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	var (
		mu      sync.Mutex
		timer   *time.Timer
		stopped bool
	)

	fire := func() {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, onChange)
	}

	go func() {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					fire()
				}
			case watchErr, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("bank watch error", "path", path, "error", watchErr)
			}
		}
	}()

	return func() error {
		mu.Lock()
		if stopped {
			mu.Unlock()
			return nil
		}
		stopped = true
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		return w.Close()
	}, nil
}
