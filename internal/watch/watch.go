// Package watch reports batches of record file changes in a directory.
package watch

import (
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/swirl/internal/records"
)

// DefaultDebounce is the quiet period that closes a batch.
const DefaultDebounce = 100 * time.Millisecond

// Batch is a set of record files that changed within one debounce window.
type Batch struct {
	Files []string // Absolute paths, sorted
}

// Watcher monitors a record directory using fsnotify. Changes arriving
// within the debounce window of each other are delivered as one Batch.
type Watcher struct {
	Dir     string
	Changes <-chan Batch // Read-only external channel

	changes  chan Batch // Internal write channel
	stop     chan struct{}
	done     chan struct{}
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// New creates a watcher for dir. A non-positive debounce uses
// DefaultDebounce.
func New(dir string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	ch := make(chan Batch, 1)
	return &Watcher{
		Dir:      dir,
		Changes:  ch,
		changes:  ch,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		watcher:  fw,
		debounce: debounce,
	}, nil
}

// Start begins watching the directory.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.Dir); err != nil {
		return err
	}

	go w.loop()
	return nil
}

// Stop closes the watcher, waits for the loop to exit and closes Changes.
// A batch still pending is discarded.
func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
	<-w.done // Wait for loop to exit
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	pending := make(map[string]struct{})
	var last time.Time
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !records.IsRecordFile(filepath.Base(event.Name)) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[event.Name] = struct{}{}
				last = time.Now()
			}

		case <-ticker.C:
			if len(pending) == 0 || time.Since(last) < w.debounce {
				continue
			}
			files := make([]string, 0, len(pending))
			for f := range pending {
				files = append(files, f)
			}
			sort.Strings(files)
			clear(pending)

			select {
			case w.changes <- Batch{Files: files}:
			case <-w.stop:
				return
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal.
			slog.Warn("watch error", "dir", w.Dir, "error", err)
		}
	}
}
