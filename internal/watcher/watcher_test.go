package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/codeindexer/corex/internal/config"
	"github.com/codeindexer/corex/internal/filter"
	"github.com/codeindexer/corex/internal/types"
)

// TestMain checks that Stop() always leaves the watcher's timer and
// fsnotify goroutines torn down, not just its exported state reset.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWatcherCoalescesBurstIntoSingleRebuild(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n"), 0o644))

	f := filter.New(root, 1<<20, nil)
	cfg := config.Default()
	cfg.DebounceSeconds = 1

	var rebuilds int32
	w, err := New(root, f, cfg, func(ctx context.Context) error {
		atomic.AddInt32(&rebuilds, 1)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "b.go"), []byte("package a\n"), 0o644))
		time.Sleep(100 * time.Millisecond)
	}

	time.Sleep(2 * time.Second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&rebuilds))
}

func TestWatcherIgnoresBlockedPaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))

	f := filter.New(root, 1<<20, nil)
	cfg := config.Default()
	cfg.DebounceSeconds = 1

	var rebuilds int32
	w, err := New(root, f, cfg, func(ctx context.Context) error {
		atomic.AddInt32(&rebuilds, 1)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "index"), []byte("x"), 0o644))
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&rebuilds))
}

func TestWatcherRecordsLastEventKind(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n"), 0o644))

	f := filter.New(root, 1<<20, nil)
	cfg := config.Default()
	cfg.DebounceSeconds = 1

	w, err := New(root, f, cfg, func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "new.go"), []byte("package a\n"), 0o644))
	time.Sleep(300 * time.Millisecond)

	// os.WriteFile creates the file and then writes to it, so the last
	// event recorded is the write.
	ev := w.LastEvent()
	assert.Equal(t, types.EventModify, ev.Kind)
	assert.Equal(t, filepath.Join(root, "new.go"), ev.NewPath)
}

func TestWatcherStopCancelsPendingRebuild(t *testing.T) {
	root := t.TempDir()
	f := filter.New(root, 1<<20, nil)
	cfg := config.Default()
	cfg.DebounceSeconds = 5

	var rebuilds int32
	w, err := New(root, f, cfg, func(ctx context.Context) error {
		atomic.AddInt32(&rebuilds, 1)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())

	require.NoError(t, os.WriteFile(filepath.Join(root, "c.go"), []byte("package a\n"), 0o644))
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, w.Stop())
	assert.Equal(t, int32(0), atomic.LoadInt32(&rebuilds))
}
