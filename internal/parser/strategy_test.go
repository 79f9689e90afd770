package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectDispatchesByExtension(t *testing.T) {
	cases := map[string]Strategy{
		"a.py":   &pythonStrategy{},
		"a.js":   &javascriptStrategy{},
		"a.ts":   &typescriptStrategy{},
		"a.tsx":  &typescriptStrategy{},
		"a.java": &javaStrategy{},
		"a.go":   &goStrategy{},
		"a.m":    &objcStrategy{},
		"a.zig":  &zigStrategy{},
	}
	for path, want := range cases {
		got := Select(path, "")
		assert.IsType(t, want, got, path)
	}
}

func TestSelectUsesShebangForExtensionlessFiles(t *testing.T) {
	got := Select("myscript", ".py")
	_, ok := got.(*pythonStrategy)
	assert.True(t, ok)
}

func TestLanguageForReportsFallbackTagsToo(t *testing.T) {
	assert.Equal(t, "python", LanguageFor("a.py", ""))
	assert.Equal(t, "markdown", LanguageFor("README.md", ""))
	assert.Equal(t, "yaml", LanguageFor("docker-compose.yml", ""))
}
