package deepindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeindexer/corex/internal/config"
	"github.com/codeindexer/corex/internal/filter"
	"github.com/codeindexer/corex/internal/shallow"
	"github.com/codeindexer/corex/internal/store"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func buildShallow(t *testing.T, dir string, cfg *config.Config) *shallow.Index {
	t.Helper()
	f := filter.New(dir, cfg.MaxFileSizeBytes, nil)
	idx, err := shallow.Build(context.Background(), dir, f, cfg)
	require.NoError(t, err)
	return idx
}

func TestBuildResolvesSameFileCall(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.go", `package app

func helper() int {
	return 1
}

func run() int {
	return helper()
}
`)
	cfg := config.Default()
	sIdx := buildShallow(t, dir, cfg)

	dIdx, err := Build(context.Background(), dir, sIdx, cfg)
	require.NoError(t, err)

	assert.Empty(t, dIdx.Failures)
	_, ok := dIdx.LookupQN("app.go::helper")
	require.True(t, ok)

	found := false
	for _, e := range dIdx.Edges {
		if e.CallerQualified == "app.go::run" && e.CalleeQualified == "app.go::helper" {
			found = true
		}
	}
	assert.True(t, found)

	summary, ok := dIdx.Summarize("app.go")
	require.True(t, ok)
	var helperCalledBy []string
	for _, sym := range summary.Symbols {
		if sym.QualifiedName == "app.go::helper" {
			helperCalledBy = sym.CalledBy
		}
	}
	assert.Contains(t, helperCalledBy, "app.go::run")
}

func TestBuildRecordsParseFailureForBrokenFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.go", "package app\n\nfunc ( {{{\n")
	cfg := config.Default()
	sIdx := buildShallow(t, dir, cfg)

	dIdx, err := Build(context.Background(), dir, sIdx, cfg)
	require.NoError(t, err)

	require.Len(t, dIdx.Failures, 1)
	assert.Equal(t, "broken.go", dIdx.Failures[0].Path)
}

func TestBuildTwiceProducesByteIdenticalBlobs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.go", `package app

func helper() int {
	return 1
}

func run() int {
	return helper()
}
`)
	cfg := config.Default()
	sIdx := buildShallow(t, dir, cfg)

	first, err := Build(context.Background(), dir, sIdx, cfg)
	require.NoError(t, err)
	second, err := Build(context.Background(), dir, sIdx, cfg)
	require.NoError(t, err)

	const stamp = int64(1700000000000000000)
	first.BuildUnixNano, second.BuildUnixNano = stamp, stamp
	assert.Equal(t, store.EncodeDeep(first), store.EncodeDeep(second))
}

func TestBuildResolvesCrossFileCallViaImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pkg/util.py", `def double(x):
    return x * 2
`)
	writeFile(t, dir, "main.py", `import pkg.util


def run():
    return util.double(3)
`)
	cfg := config.Default()
	sIdx := buildShallow(t, dir, cfg)

	dIdx, err := Build(context.Background(), dir, sIdx, cfg)
	require.NoError(t, err)

	found := false
	for _, e := range dIdx.Edges {
		if e.CallerQualified == "main.py::run" && e.CalleeQualified == "pkg/util.py::double" {
			found = true
		}
	}
	assert.True(t, found)
}
