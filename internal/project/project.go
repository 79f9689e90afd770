// Package project implements the Project Controller: the state machine
// tying the Settings Store, File Filter, Shallow Index, Deep Index, File
// Watcher, and Search Router together behind one API surface.
package project

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/codeindexer/corex/internal/config"
	"github.com/codeindexer/corex/internal/debuglog"
	"github.com/codeindexer/corex/internal/deepindex"
	"github.com/codeindexer/corex/internal/errlib"
	"github.com/codeindexer/corex/internal/filter"
	"github.com/codeindexer/corex/internal/search"
	"github.com/codeindexer/corex/internal/settings"
	"github.com/codeindexer/corex/internal/shallow"
	"github.com/codeindexer/corex/internal/types"
	"github.com/codeindexer/corex/internal/watcher"
)

// State is a Project Controller lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateTearingDown   State = "tearing_down"
)

// Controller owns the lifecycle of one project's indexes. All exported
// methods are safe for concurrent use.
type Controller struct {
	mu    sync.Mutex
	state State

	root   string
	cfg    *config.Config
	filt   *filter.Filter
	store  *settings.Store
	watch  *watcher.Watcher
	router *search.Router

	shallowIdx *shallow.Index
	deepIdx    *deepindex.Index

	buildMu   sync.Mutex
	buildKind string // "" when idle, else "shallow" or "deep"
}

// New returns an idle Controller. Call SetPath to begin using it.
func New() *Controller {
	return &Controller{state: StateUninitialized}
}

// ShallowStats summarizes one completed Shallow Index build.
type ShallowStats struct {
	Files          int
	LanguageCounts map[string]int
}

func shallowStatsOf(idx *shallow.Index) ShallowStats {
	if idx == nil {
		return ShallowStats{}
	}
	return ShallowStats{Files: len(idx.Files), LanguageCounts: idx.LanguageHistogram()}
}

// SetPathResult is the response shape for set_project_path.
type SetPathResult struct {
	State   State
	Shallow ShallowStats
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetPath transitions to a new project root from any state: stops the
// previous Watcher (a shallow or deep build already running is not
// cancelled), (re)initializes the Settings Store, attempts to load
// existing indexes, rebuilds shallow on any load mismatch, starts the
// Watcher, and enters Ready. Rebuilding deep is never implicit.
func (c *Controller) SetPath(ctx context.Context, root string) (SetPathResult, error) {
	c.mu.Lock()
	oldWatch := c.watch
	c.watch = nil
	c.state = StateInitializing
	c.mu.Unlock()

	if oldWatch != nil {
		_ = oldWatch.Stop()
	}

	cfg, err := config.Load(root)
	if err != nil {
		return SetPathResult{}, err
	}
	f := filter.New(root, cfg.MaxFileSizeBytes, cfg.ExtraExcludeGlobs)

	st, err := settings.Initialize(root, cfg.ScratchOverride)
	if err != nil {
		return SetPathResult{}, err
	}

	shallowIdx, err := st.LoadShallow()
	if err != nil {
		return SetPathResult{}, err
	}
	deepIdx, err := st.LoadDeep()
	if err != nil {
		return SetPathResult{}, err
	}

	c.mu.Lock()
	c.root = root
	c.cfg = cfg
	c.filt = f
	c.store = st
	c.shallowIdx = shallowIdx
	c.deepIdx = deepIdx
	c.router = search.New(root, c.listFiles)
	c.mu.Unlock()

	if shallowIdx == nil {
		if _, err := c.rebuildShallow(ctx); err != nil {
			return SetPathResult{}, err
		}
	}

	w, err := watcher.New(root, f, cfg, c.watcherRebuild)
	if err != nil {
		return SetPathResult{}, err
	}
	if err := w.Start(); err != nil {
		return SetPathResult{}, err
	}

	c.mu.Lock()
	c.watch = w
	c.state = StateReady
	stats := shallowStatsOf(c.shallowIdx)
	c.mu.Unlock()

	return SetPathResult{State: StateReady, Shallow: stats}, nil
}

func (c *Controller) listFiles() ([]string, error) {
	c.mu.Lock()
	idx := c.shallowIdx
	c.mu.Unlock()
	if idx == nil {
		return nil, nil
	}
	out := make([]string, len(idx.Files))
	for i, f := range idx.Files {
		out[i] = f.RelPath
	}
	return out, nil
}

// watcherRebuild is the callback the File Watcher invokes after its
// debounce window elapses; it is equivalent to one RefreshShallow call.
func (c *Controller) watcherRebuild(ctx context.Context) error {
	_, err := c.rebuildShallow(ctx)
	return err
}

// RefreshShallow runs one Shallow Index rebuild synchronously, equivalent
// to one completed Watcher debounce cycle invoked manually.
func (c *Controller) RefreshShallow(ctx context.Context) (ShallowStats, error) {
	if err := c.requireReady(); err != nil {
		return ShallowStats{}, err
	}
	return c.rebuildShallow(ctx)
}

func (c *Controller) rebuildShallow(ctx context.Context) (ShallowStats, error) {
	ok, inFlight := c.tryStartBuild("shallow")
	if !ok {
		return ShallowStats{}, &errlib.BusyError{InFlight: inFlight}
	}
	defer c.endBuild()

	c.mu.Lock()
	root, f, cfg, st := c.root, c.filt, c.cfg, c.store
	c.mu.Unlock()

	idx, err := shallow.Build(ctx, root, f, cfg)
	if err != nil {
		return ShallowStats{}, err
	}
	if err := st.PersistShallow(idx, time.Now().UnixNano()); err != nil {
		if pe, ok := err.(*errlib.PersistenceError); ok {
			return ShallowStats{}, pe
		}
		return ShallowStats{}, errlib.NewPersistenceError("persist_shallow", err)
	}

	c.mu.Lock()
	c.shallowIdx = idx
	c.mu.Unlock()
	debuglog.Indexing("shallow rebuild complete: %d files", len(idx.Files))
	return shallowStatsOf(idx), nil
}

// BuildDeep runs the full Deep Index build against the current Shallow
// Index and persists the result. Ready state only.
func (c *Controller) BuildDeep(ctx context.Context) (*deepindex.Index, error) {
	if err := c.requireReady(); err != nil {
		return nil, err
	}
	ok, inFlight := c.tryStartBuild("deep")
	if !ok {
		return nil, &errlib.BusyError{InFlight: inFlight}
	}
	defer c.endBuild()

	c.mu.Lock()
	root, cfg, st, shallowIdx := c.root, c.cfg, c.store, c.shallowIdx
	c.mu.Unlock()

	if shallowIdx == nil {
		return nil, fmt.Errorf("project: shallow index missing, call set_path first")
	}

	idx, err := deepindex.Build(ctx, root, shallowIdx, cfg)
	if err != nil {
		return nil, err
	}
	if err := st.PersistDeep(idx, time.Now().UnixNano()); err != nil {
		return nil, errlib.NewPersistenceError("persist_deep", err)
	}

	c.mu.Lock()
	c.deepIdx = idx
	c.mu.Unlock()
	debuglog.Indexing("deep build complete: %d symbols, %d edges, %d ambiguous",
		len(idx.Symbols), len(idx.Edges), idx.AmbiguityCount)
	return idx, nil
}

// tryStartBuild acquires the single-flight build lock for kind. A shallow
// request while a shallow build is in flight is let through and runs as a
// second, independent build; it does not wait for or share the in-flight
// build's result. Any other overlap is rejected with Busy.
func (c *Controller) tryStartBuild(kind string) (ok bool, inFlight string) {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()
	if c.buildKind == "" {
		c.buildKind = kind
		return true, ""
	}
	if c.buildKind == kind && kind == "shallow" {
		return true, ""
	}
	return false, c.buildKind
}

func (c *Controller) endBuild() {
	c.buildMu.Lock()
	c.buildKind = ""
	c.buildMu.Unlock()
}

// FindFiles returns relative paths from the current Shallow Index matching
// glob, in the index's sorted order.
func (c *Controller) FindFiles(glob string) ([]string, error) {
	if err := c.requireReady(); err != nil {
		return nil, err
	}
	if _, err := doublestar.Match(glob, "a"); err != nil {
		return nil, fmt.Errorf("%s: %w", glob, errlib.ErrInvalidGlob)
	}

	c.mu.Lock()
	idx := c.shallowIdx
	c.mu.Unlock()
	if idx == nil {
		return nil, nil
	}
	return idx.FilesMatching(glob), nil
}

// FileSummary returns the Deep Index's view of one file. DeepIndexMissing
// is reported if build_deep has never run.
func (c *Controller) FileSummary(relPath string) (types.FileSummary, error) {
	if err := c.requireReady(); err != nil {
		return types.FileSummary{}, err
	}
	c.mu.Lock()
	idx := c.deepIdx
	c.mu.Unlock()
	if idx == nil {
		return types.FileSummary{}, fmt.Errorf("project: deep index missing, call build_deep first")
	}
	summary, ok := idx.Summarize(relPath)
	if !ok {
		return types.FileSummary{}, fmt.Errorf("project: unknown file %s", relPath)
	}
	return summary, nil
}

// SearchCode runs a Search Router query against the current project root.
func (c *Controller) SearchCode(ctx context.Context, pattern string, opts types.SearchOptions) ([]types.SearchMatch, error) {
	if err := c.requireReady(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	r := c.router
	c.mu.Unlock()
	return r.Search(ctx, pattern, opts)
}

// SettingsInfo is the response shape for get_settings_info.
type SettingsInfo struct {
	ScratchBase        string
	ProjectRoot        string
	SchemaVersion      uint32
	ShallowBuiltUnixNs int64
	DeepBuiltUnixNs    int64
	ActiveBackend      string
	ShallowFiles       int
	LanguageCounts     map[string]int
	DeepSymbols        int
	DeepEdges          int
	AmbiguityCount     int
	ParseFailures      int
}

// GetSettingsInfo reports the scratch path choice, schema version, build
// timestamps, and the active search backend, plus a codebase-health
// summary.
func (c *Controller) GetSettingsInfo() SettingsInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := SettingsInfo{ProjectRoot: c.root}
	if c.store != nil {
		info.ScratchBase = c.store.Root().Dir
		snap := c.store.ReadConfigSnapshot()
		info.SchemaVersion = snap.SchemaVersion
		info.ShallowBuiltUnixNs = snap.ShallowBuiltUnixNs
		info.DeepBuiltUnixNs = snap.DeepBuiltUnixNs
	}
	if c.router != nil {
		info.ActiveBackend = c.router.ActiveBackend()
	}
	if c.shallowIdx != nil {
		info.ShallowFiles = len(c.shallowIdx.Files)
		info.LanguageCounts = c.shallowIdx.LanguageHistogram()
	}
	if c.deepIdx != nil {
		info.DeepSymbols = len(c.deepIdx.Symbols)
		info.DeepEdges = len(c.deepIdx.Edges)
		info.AmbiguityCount = c.deepIdx.AmbiguityCount
		info.ParseFailures = len(c.deepIdx.Failures)
	}
	return info
}

// Clear stops the Watcher, drops in-memory indexes, and removes the
// IndexRoot via the Settings Store.
func (c *Controller) Clear() error {
	c.mu.Lock()
	w, st := c.watch, c.store
	c.watch = nil
	c.shallowIdx = nil
	c.deepIdx = nil
	c.state = StateTearingDown
	c.mu.Unlock()

	if w != nil {
		if err := w.Stop(); err != nil {
			return err
		}
	}
	if st != nil {
		if err := st.Clear(); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.state = StateUninitialized
	c.mu.Unlock()
	return nil
}

func (c *Controller) requireReady() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return fmt.Errorf("project: not ready (state=%s)", c.state)
	}
	return nil
}
