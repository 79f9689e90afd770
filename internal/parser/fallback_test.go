package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackStrategyCountsLinesAndImports(t *testing.T) {
	src := "#include <stdio.h>\n#include \"local.h\"\n\nint main(void) { return 0; }\n"
	s := &FallbackStrategy{}
	fs, err := s.Parse("main.c", []byte(src), "c")
	require.NoError(t, err)

	assert.Equal(t, 4, fs.LineCount)
	assert.Len(t, fs.Imports, 2)
	assert.Empty(t, fs.Symbols)
	assert.Empty(t, fs.CallSites)
}

func TestFallbackStrategyNoImportsForUnknownFamily(t *testing.T) {
	s := &FallbackStrategy{}
	fs, err := s.Parse("notes.txt", []byte("just some text\nmore text\n"), "text")
	require.NoError(t, err)
	assert.Equal(t, 2, fs.LineCount)
	assert.Empty(t, fs.Imports)
}
