package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeindexer/corex/internal/types"
)

func TestValidateRegexRejectsCatastrophicPattern(t *testing.T) {
	_, err := validateRegex("(a+)+$")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested quantifier")
}

func TestValidateRegexAcceptsOrdinaryPattern(t *testing.T) {
	re, err := validateRegex(`func\s+\w+\(`)
	require.NoError(t, err)
	assert.True(t, re.MatchString("func doThing("))
}

func TestRouterSearchUsesBuiltinFallback(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n\nfunc helper() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.go"), []byte("package a\n\nfunc other() {}\n"), 0o644))

	r := New(root, func() ([]string, error) { return []string{"a.go", "b.go"}, nil })
	r.active = backendBuiltin
	r.probed = true

	matches, err := r.Search(context.Background(), "helper", types.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a.go", matches[0].Path)
	assert.Equal(t, 3, matches[0].Line)
}

func TestRouterSearchHonorsFileGlob(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("token here\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.py"), []byte("token here\n"), 0o644))

	r := New(root, func() ([]string, error) { return []string{"a.go", "sub/b.py"}, nil })
	r.active = backendBuiltin
	r.probed = true

	matches, err := r.Search(context.Background(), "token", types.SearchOptions{FileGlob: "**/*.py"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "sub/b.py", matches[0].Path)
}

func TestRouterSearchFuzzyDowngradeReportsMetadata(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("handleRequest(req)\n"), 0o644))

	r := New(root, func() ([]string, error) { return []string{"a.go"}, nil })
	r.active = backendBuiltin
	r.probed = true

	matches, err := r.Search(context.Background(), "Request", types.SearchOptions{Fuzzy: true})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, matches[0].FuzzyDowngraded)
}

func TestRouterSearchInvalidGlobFails(t *testing.T) {
	root := t.TempDir()
	r := New(root, func() ([]string, error) { return []string{"a.go"}, nil })
	r.active = backendBuiltin
	r.probed = true

	_, err := r.Search(context.Background(), "x", types.SearchOptions{FileGlob: "[unterminated"})
	require.Error(t, err)
}
