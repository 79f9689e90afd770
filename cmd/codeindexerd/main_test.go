package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeindexer/corex/internal/project"
	"github.com/codeindexer/corex/internal/types"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestHandleSetPathFindFilesAndClear(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc helperFunc() {}\n")

	ctrl := project.New()
	defer ctrl.Clear()

	resp := handle(ctrl, request{Op: "set_project_path", Path: root})
	require.Empty(t, resp.Error)

	resp = handle(ctrl, request{Op: "find_files", Glob: "**/*.go"})
	require.Empty(t, resp.Error)
	assert.Equal(t, []string{"a.go"}, resp.Result)

	resp = handle(ctrl, request{Op: "search_code", Pattern: "helperFunc", Options: types.SearchOptions{}})
	require.Empty(t, resp.Error)
	matches, ok := resp.Result.([]types.SearchMatch)
	require.True(t, ok)
	require.NotEmpty(t, matches)

	resp = handle(ctrl, request{Op: "clear_settings"})
	assert.Empty(t, resp.Error)
}

func TestHandleUnknownOpReportsError(t *testing.T) {
	ctrl := project.New()
	resp := handle(ctrl, request{Op: "bogus"})
	assert.Contains(t, resp.Error, "unknown op")
}

func TestHandleBuildDeepBeforeSetPathFails(t *testing.T) {
	ctrl := project.New()
	resp := handle(ctrl, request{Op: "build_deep"})
	assert.NotEmpty(t, resp.Error)
}
