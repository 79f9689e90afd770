package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeindexer/corex/internal/deepindex"
	"github.com/codeindexer/corex/internal/shallow"
	"github.com/codeindexer/corex/internal/types"
)

func TestInitializeCreatesIndexRootAndConfig(t *testing.T) {
	projectDir := t.TempDir()

	s, err := Initialize(projectDir, "")
	require.NoError(t, err)

	info, err := filepath.Abs(s.Root().Dir)
	require.NoError(t, err)
	assert.DirExists(t, info)
	assert.FileExists(t, filepath.Join(s.Root().Dir, "config.json"))
}

func TestPersistAndLoadShallowRoundTrip(t *testing.T) {
	projectDir := t.TempDir()
	s, err := Initialize(projectDir, "")
	require.NoError(t, err)

	idx := &shallow.Index{
		ProjectKey: s.Root().ProjectKey,
		Root:       projectDir,
		Files: []types.FileRecord{
			{RelPath: "main.go", Language: "go", SizeBytes: 5, LineCount: 2},
		},
		LanguageCounts: map[string]int{"go": 1},
	}
	require.NoError(t, s.PersistShallow(idx, 42))

	loaded, err := s.LoadShallow()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, idx.Files, loaded.Files)
}

func TestLoadShallowReturnsNilWhenAbsent(t *testing.T) {
	projectDir := t.TempDir()
	s, err := Initialize(projectDir, "")
	require.NoError(t, err)

	loaded, err := s.LoadShallow()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadDeepRecoversFromCorruptedFile(t *testing.T) {
	projectDir := t.TempDir()
	s, err := Initialize(projectDir, "")
	require.NoError(t, err)

	idx := &deepindex.Index{
		ProjectKey: s.Root().ProjectKey,
		Files:      map[string]types.FileSymbols{},
		Symbols:    map[string]types.Symbol{},
	}
	require.NoError(t, s.PersistDeep(idx, 42))

	path := filepath.Join(s.Root().Dir, "deep.bin")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := s.LoadDeep()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestClearIsTolerantOfMissingDir(t *testing.T) {
	projectDir := t.TempDir()
	s, err := Initialize(projectDir, "")
	require.NoError(t, err)

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	assert.NoDirExists(t, s.Root().Dir)
}
