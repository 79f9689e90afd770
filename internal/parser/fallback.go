package parser

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/codeindexer/corex/internal/types"
)

// FallbackStrategy applies to every indexable extension without a
// specialized grammar. It never produces per-symbol detail and never
// records call sites.
type FallbackStrategy struct{}

// importPrefixesByExtension lists the literal line prefixes that look like
// an import/include/use statement for each extension family. Order within
// a family does not matter; matching is a plain prefix test after trimming
// leading whitespace.
var importPrefixesByExtension = map[string][]string{
	".c": {"#include"}, ".cc": {"#include"}, ".cpp": {"#include"}, ".cxx": {"#include"},
	".h": {"#include"}, ".hpp": {"#include"},
	".rs":     {"use ", "extern crate"},
	".rb":     {"require ", "require_relative "},
	".php":    {"use ", "require ", "require_once ", "include ", "include_once "},
	".cs":     {"using "},
	".kt":     {"import "}, ".kts": {"import "},
	".scala":  {"import "},
	".swift":  {"import "},
	".lua":    {"require("},
	".sql":    {}, ".ddl": {}, ".dml": {},
}

func (s *FallbackStrategy) Parse(path string, source []byte, language string) (types.FileSymbols, error) {
	ext := fallbackExtensionOf(path)
	prefixes := importPrefixesByExtension[ext]

	var imports []types.Import
	lineCount := 0
	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineCount++
		trimmed := strings.TrimSpace(scanner.Text())
		for _, prefix := range prefixes {
			if strings.HasPrefix(trimmed, prefix) {
				imports = append(imports, types.Import{Source: trimmed})
				break
			}
		}
	}

	return types.FileSymbols{
		Path:      path,
		Language:  language,
		Imports:   imports,
		Symbols:   nil,
		CallSites: nil,
		LineCount: lineCount,
	}, nil
}

func fallbackExtensionOf(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(path[idx:])
}

func fallbackLanguageForExtension(ext string) string {
	switch ext {
	case ".md", ".mdx":
		return "markdown"
	case ".json":
		return "json"
	case ".yml", ".yaml":
		return "yaml"
	case ".toml":
		return "toml"
	case ".sql", ".ddl", ".dml":
		return "sql"
	}
	if ext == "" {
		return "unknown"
	}
	return strings.TrimPrefix(ext, ".")
}
