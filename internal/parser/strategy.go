package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/codeindexer/corex/internal/types"
)

// Strategy is the contract every Parsing Strategy implements: produce
// FileSymbols from a source buffer, or a structured error on irrecoverable
// grammar failure. Specialized strategies never silently fall back to
// regex extraction on a grammar error.
type Strategy interface {
	Parse(path string, source []byte, language string) (types.FileSymbols, error)
}

// specializedLanguageByExtension is used to cache extension -> specialized language
// selection deterministically.
var specializedLanguageByExtension = map[string]string{
	".py": "python", ".pyw": "python",
	".js": "javascript", ".jsx": "javascript", ".mjs": "javascript", ".cjs": "javascript",
	".ts": "typescript", ".tsx": "typescript",
	".java": "java",
	".go":   "go",
	".m":    "objective-c", ".mm": "objective-c",
	".zig": "zig", ".zon": "zig",
}

var strategyCache = map[string]Strategy{
	"python":      &pythonStrategy{},
	"javascript":  &javascriptStrategy{},
	"typescript":  &typescriptStrategy{},
	"java":        &javaStrategy{},
	"go":          &goStrategy{},
	"objective-c": &objcStrategy{},
	"zig":         &zigStrategy{},
}

var fallback Strategy = &FallbackStrategy{}

// Select deterministically picks the Strategy for path, by extension first,
// then by shebang interpreter (interp, already resolved by the caller) for
// extensionless files.
func Select(path, interp string) Strategy {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		ext = interp
	}
	if lang, ok := specializedLanguageByExtension[ext]; ok {
		if s, ok := strategyCache[lang]; ok {
			return s
		}
	}
	return fallback
}

// LanguageFor returns the language tag Select would use for path, without
// constructing a Strategy. The Shallow Index's language histogram does not
// use it; that comes from filter.DetectedLanguage.
func LanguageFor(path, interp string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		ext = interp
	}
	if lang, ok := specializedLanguageByExtension[ext]; ok {
		return lang
	}
	return fallbackLanguageForExtension(ext)
}

// ParseGrammarError is returned by a specialized Strategy when the
// tree-sitter grammar fails to produce a usable parse tree. The Deep Index
// records this as a FileParseFailure and the file contributes no symbols.
type ParseGrammarError struct {
	Path     string
	Language string
	Reason   string
}

func (e *ParseGrammarError) Error() string {
	return fmt.Sprintf("grammar failure parsing %s as %s: %s", e.Path, e.Language, e.Reason)
}
