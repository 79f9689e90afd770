package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/codeindexer/corex/internal/errlib"
	"github.com/codeindexer/corex/internal/types"
)

// TestMain checks that Clear() always leaves the Watcher's background
// goroutines torn down, not just the Controller's exported state reset.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestSetPathBuildsShallowAndReady(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "class C:\n    def m(self):\n        pass\n")
	writeFile(t, root, "b.py", "import a\n\ndef caller():\n    a.C().m()\n")
	writeFile(t, root, "README.md", "hello\n")

	c := New()
	result, err := c.SetPath(context.Background(), root)
	require.NoError(t, err)
	defer c.Clear()

	assert.Equal(t, StateReady, result.State)
	assert.Equal(t, StateReady, c.State())
	assert.Equal(t, 3, result.Shallow.Files)

	files, err := c.FindFiles("**/*.py")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "b.py"}, files)
}

func TestBuildDeepResolvesCrossFileCall(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "class C:\n    def m(self):\n        pass\n")
	writeFile(t, root, "b.py", "import a\n\ndef caller():\n    a.C().m()\n")

	c := New()
	_, err := c.SetPath(context.Background(), root)
	require.NoError(t, err)
	defer c.Clear()

	idx, err := c.BuildDeep(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, idx.Symbols)
	assert.Contains(t, idx.Edges, types.CallEdge{CallerQualified: "b.py::caller", CalleeQualified: "a.py::C.m"})

	summary, err := c.FileSummary("a.py")
	require.NoError(t, err)
	assert.NotEmpty(t, summary.Symbols)
}

func TestFileSummaryRequiresDeepIndex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def f():\n    pass\n")

	c := New()
	_, err := c.SetPath(context.Background(), root)
	require.NoError(t, err)
	defer c.Clear()

	_, err = c.FileSummary("a.py")
	assert.Error(t, err)
}

func TestClearReturnsToUninitialized(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def f():\n    pass\n")

	c := New()
	_, err := c.SetPath(context.Background(), root)
	require.NoError(t, err)
	require.NoError(t, c.Clear())
	assert.Equal(t, StateUninitialized, c.State())
}

// TestFileSummaryNeverObservesPartialBuild exercises the atomic-swap
// requirement: readers see either the prior deep index or the finished one,
// never a half-built index, while a deep build runs concurrently.
func TestFileSummaryNeverObservesPartialBuild(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, root, filepath.Join("pkg", "f"+string(rune('a'+i))+".py"),
			"class C:\n    def m(self):\n        pass\n")
	}

	c := New()
	_, err := c.SetPath(context.Background(), root)
	require.NoError(t, err)
	defer c.Clear()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.BuildDeep(context.Background())
		assert.NoError(t, err)
	}()

	for i := 0; i < 50; i++ {
		_, err := c.FileSummary(filepath.Join("pkg", "fa.py"))
		if err != nil {
			assert.True(t, strings.Contains(err.Error(), "deep index missing"))
		}
	}
	wg.Wait()

	summary, err := c.FileSummary(filepath.Join("pkg", "fa.py"))
	require.NoError(t, err)
	assert.NotEmpty(t, summary.Symbols)
}

// TestFreshIndexScenario builds a small cross-file project, then walks the
// whole Project Controller surface over it: set_project_path, find_files,
// build_deep, and the resulting reverse call graph on the called method.
func TestFreshIndexScenario(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "class C:\n    def m(self):\n        pass\n    def n(self):\n        pass\n")
	writeFile(t, root, "b.py", "import a\n\ndef caller():\n    a.C().m()\n")
	writeFile(t, root, "README.md", "hello\n")

	c := New()
	_, err := c.SetPath(context.Background(), root)
	require.NoError(t, err)
	defer c.Clear()

	files, err := c.FindFiles("**/*")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	idx, err := c.BuildDeep(context.Background())
	require.NoError(t, err)
	assert.Len(t, idx.Symbols, 4)

	summary, err := c.FileSummary("a.py")
	require.NoError(t, err)
	var calledBy []string
	for _, sym := range summary.Symbols {
		if sym.QualifiedName == "a.py::C.m" {
			calledBy = sym.CalledBy
		}
	}
	assert.Contains(t, calledBy, "b.py::caller")
}

func TestRefreshShallowTwiceIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def f():\n    pass\n")

	c := New()
	_, err := c.SetPath(context.Background(), root)
	require.NoError(t, err)
	defer c.Clear()

	firstStats, err := c.RefreshShallow(context.Background())
	require.NoError(t, err)
	first, err := c.FindFiles("**/*.py")
	require.NoError(t, err)

	secondStats, err := c.RefreshShallow(context.Background())
	require.NoError(t, err)
	second, err := c.FindFiles("**/*.py")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstStats, secondStats)
}

// TestSearchCodeRejectsCatastrophicRegex checks that a regex query with a
// nested unbounded quantifier is refused before any backend runs.
func TestSearchCodeRejectsCatastrophicRegex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc helperFunc() {}\n")

	c := New()
	_, err := c.SetPath(context.Background(), root)
	require.NoError(t, err)
	defer c.Clear()

	matches, err := c.SearchCode(context.Background(), "(a+)+$", types.SearchOptions{Regex: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errlib.ErrInvalidRegex))
	assert.Empty(t, matches)
}

// TestWatcherCoalescesConcurrentFileCreationIntoShallowIndex creates two
// files close together, through the live Watcher wired up by SetPath, and
// checks both land in the Shallow Index once the debounce window has
// elapsed, without an explicit refresh_shallow call.
func TestWatcherCoalescesConcurrentFileCreationIntoShallowIndex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".codeindexer.kdl", "index {\n    watch_debounce_seconds 1\n}\n")
	writeFile(t, root, "a.py", "def f():\n    pass\n")

	c := New()
	_, err := c.SetPath(context.Background(), root)
	require.NoError(t, err)
	defer c.Clear()

	writeFile(t, root, "c.py", "def g():\n    pass\n")
	time.Sleep(100 * time.Millisecond)
	writeFile(t, root, "d.py", "def h():\n    pass\n")

	deadline := time.Now().Add(5 * time.Second)
	var files []string
	for time.Now().Before(deadline) {
		files, err = c.FindFiles("**/*.py")
		require.NoError(t, err)
		if len(files) == 3 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	assert.Equal(t, []string{"a.py", "c.py", "d.py"}, files)
}

func TestSearchCodeFindsLiteralMatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc helperFunc() {}\n")

	c := New()
	_, err := c.SetPath(context.Background(), root)
	require.NoError(t, err)
	defer c.Clear()

	matches, err := c.SearchCode(context.Background(), "helperFunc", types.SearchOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "a.go", matches[0].Path)
}

func TestGetSettingsInfoReportsSchemaVersionAndBuildTimestamps(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def f():\n    pass\n")

	c := New()
	_, err := c.SetPath(context.Background(), root)
	require.NoError(t, err)
	defer c.Clear()

	info := c.GetSettingsInfo()
	assert.NotZero(t, info.SchemaVersion)
	assert.NotZero(t, info.ShallowBuiltUnixNs)
	assert.Zero(t, info.DeepBuiltUnixNs)

	_, err = c.BuildDeep(context.Background())
	require.NoError(t, err)

	info = c.GetSettingsInfo()
	assert.NotZero(t, info.DeepBuiltUnixNs)
}
