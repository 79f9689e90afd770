// Package watcher translates OS filesystem events for the project root into
// deferred Shallow Index rebuilds, coalesced behind a single-consumer
// debounce queue.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codeindexer/corex/internal/config"
	"github.com/codeindexer/corex/internal/debuglog"
	"github.com/codeindexer/corex/internal/filter"
	"github.com/codeindexer/corex/internal/types"
)

// RebuildFunc performs a full Shallow Index rebuild and persists it. It is
// invoked at most once per debounce window, never concurrently with itself.
type RebuildFunc func(ctx context.Context) error

// Watcher watches a project root and triggers RebuildFunc after a quiet
// period following the last filesystem event that passes the File Filter.
type Watcher struct {
	root    string
	filter  *filter.Filter
	debounce time.Duration
	rebuild RebuildFunc

	fsw *fsnotify.Watcher

	mu        sync.Mutex
	deadline  time.Time
	pending   bool
	timer     *time.Timer
	lastEvent types.WatcherEvent

	rebuildMu sync.Mutex // single-flight rebuild lock

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	pollFallback bool
}

// New creates a Watcher for root. cfg.DebounceSeconds (clamped by
// config.Config.Clamp) sets the debounce window.
func New(root string, f *filter.Filter, cfg *config.Config, rebuild RebuildFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     root,
		filter:   f,
		debounce: time.Duration(cfg.DebounceSeconds) * time.Second,
		rebuild:  rebuild,
		fsw:      fsw,
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())
	return w, nil
}

// Start begins watching. If the platform or filesystem does not support
// recursive watches, Start falls back to polling at 2x the debounce window
// rather than failing.
func (w *Watcher) Start() error {
	if err := w.addWatches(w.root); err != nil {
		debuglog.Watch("recursive watch setup failed for %s, falling back to polling: %v", w.root, err)
		w.pollFallback = true
	}

	w.wg.Add(1)
	if w.pollFallback {
		go w.runPoll()
	} else {
		go w.runEvents()
	}
	return nil
}

// Stop cancels any pending debounce and waits for the watcher goroutine to
// exit, within 2x the debounce window.
func (w *Watcher) Stop() error {
	w.cancel()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * w.debounce):
	}
	return w.fsw.Close()
}

func (w *Watcher) addWatches(root string) error {
	visited := map[string]bool{}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		if !w.filter.IncludedDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			if path == root {
				return err
			}
			debuglog.Watch("failed to add watch for %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) runEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			debuglog.Watch("error: %v", err)
		}
	}
}

// handleEvent applies File Filter inclusion to the event's final path
// (destination path for renames, matching the save-via-temp-file pattern
// most editors use) and advances the debounce deadline only if it passes.
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.filter.IncludedDir(path) {
				if err := w.fsw.Add(path); err != nil {
					debuglog.Watch("failed to add watch for new directory %s: %v", path, err)
				}
			}
			return
		}
	}

	if !w.filter.Included(path) {
		return
	}

	we := classifyEvent(ev)
	w.mu.Lock()
	w.lastEvent = we
	w.mu.Unlock()
	debuglog.Watch("%s: %s", we.Kind, path)

	w.advanceDeadline()
}

// classifyEvent maps an fsnotify event onto the coalesced WatcherEvent
// shape, using the final path as the event's primary path in every case.
func classifyEvent(ev fsnotify.Event) types.WatcherEvent {
	switch {
	case ev.Op&fsnotify.Remove != 0:
		return types.WatcherEvent{Kind: types.EventDelete, OldPath: ev.Name}
	case ev.Op&fsnotify.Rename != 0:
		return types.WatcherEvent{Kind: types.EventMove, OldPath: ev.Name}
	case ev.Op&fsnotify.Create != 0:
		return types.WatcherEvent{Kind: types.EventCreate, NewPath: ev.Name}
	default:
		return types.WatcherEvent{Kind: types.EventModify, NewPath: ev.Name}
	}
}

// LastEvent returns the most recently observed filesystem change that
// passed the File Filter, for introspection and tests. The zero value's
// Kind is empty before any qualifying event has occurred.
func (w *Watcher) LastEvent() types.WatcherEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastEvent
}

func (w *Watcher) advanceDeadline() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = true
	w.deadline = time.Now().Add(w.debounce)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.maybeFire)
}

// maybeFire runs when the debounce timer elapses. Because advanceDeadline
// resets the timer on every qualifying event, firing here means the
// deadline genuinely passed with no intervening event.
func (w *Watcher) maybeFire() {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	select {
	case <-w.ctx.Done():
		return
	default:
	}

	w.rebuildMu.Lock()
	defer w.rebuildMu.Unlock()

	if err := w.rebuild(w.ctx); err != nil {
		debuglog.Watch("rebuild failed: %v", err)
	}
}

// runPoll is the fallback path for platforms without usable recursive
// watch support: it re-scans the tree every 2x the debounce window and
// triggers a rebuild unconditionally, since the rebuild itself is cheap
// and idempotent.
func (w *Watcher) runPoll() {
	defer w.wg.Done()
	interval := 2 * w.debounce
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-t.C:
			w.rebuildMu.Lock()
			if err := w.rebuild(w.ctx); err != nil {
				debuglog.Watch("poll rebuild failed: %v", err)
			}
			w.rebuildMu.Unlock()
		}
	}
}
