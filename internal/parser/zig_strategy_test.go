package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zigSample = `const std = @import("std");

fn add(a: i32, b: i32) i32 {
    return a + b;
}

pub fn main() void {
    const sum = add(1, 2);
    std.debug.print("{}\n", .{sum});
}
`

func TestZigStrategyParsesWithoutGrammarError(t *testing.T) {
	s := &zigStrategy{}
	fs, err := s.Parse("main.zig", []byte(zigSample), "zig")
	require.NoError(t, err)
	assert.Equal(t, "zig", fs.Language)
	assert.Greater(t, fs.LineCount, 0)
}
