package filter

// builtinDirBlocklist lists directory basenames that exclude everything
// beneath them regardless of other rules.
var builtinDirBlocklist = map[string]bool{
	".git": true, ".hg": true, ".svn": true,
	"node_modules": true, "__pycache__": true,
	".venv": true, "venv": true,
	"dist": true, "build": true, "target": true,
	".idea": true, ".vscode": true,
	".pytest_cache": true, ".mypy_cache": true, ".tox": true,
	"coverage": true, ".next": true, ".nuxt": true,
}

// builtinFileSuffixBlocklist covers *.min.js and compiled-artifact suffixes.
var builtinFileSuffixBlocklist = []string{
	".min.js",
	".pyc", ".class", ".o", ".obj", ".so", ".dylib", ".dll",
}

// builtinFileExactBlocklist covers lock files and OS metadata basenames.
var builtinFileExactBlocklist = map[string]bool{
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":    true,
	"Cargo.lock":        true,
	"Gemfile.lock":      true,
	"composer.lock":     true,
	"poetry.lock":       true,
	".DS_Store":         true,
	"Thumbs.db":         true,
}

// indexableExtensions is the authoritative indexable extension set from the
// Glossary. Specialized languages get their own tree-sitter strategy; every
// other member of this set falls back to the metadata-only strategy.
var indexableExtensions = map[string]bool{
	// specialized
	".py": true, ".pyw": true,
	".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
	".ts": true, ".tsx": true,
	".java": true,
	".go":   true,
	".m":    true, ".mm": true,
	".zig": true, ".zon": true,
	// fallback group
	".c": true, ".cc": true, ".cpp": true, ".cxx": true, ".h": true, ".hpp": true,
	".rs": true, ".rb": true, ".php": true, ".cs": true,
	".kt": true, ".kts": true, ".scala": true, ".swift": true,
	".lua": true, ".pl": true, ".r": true,
	".sh": true, ".bash": true, ".ps1": true,
	".html": true, ".css": true, ".scss": true, ".sass": true, ".less": true,
	".vue": true, ".svelte": true, ".astro": true,
	".hbs": true, ".handlebars": true, ".ejs": true, ".pug": true,
	".md": true, ".mdx": true,
	".json": true, ".xml": true, ".yml": true, ".yaml": true, ".toml": true, ".ini": true,
	".sql": true, ".ddl": true, ".dml": true,
}

// shebangInterpreters maps a shebang interpreter basename to a pseudo
// extension used for strategy selection of extensionless scripts.
var shebangInterpreters = map[string]string{
	"python":  ".py",
	"python3": ".py",
	"node":    ".js",
	"ruby":    ".rb",
	"perl":    ".pl",
	"bash":    ".sh",
	"sh":      ".sh",
	"env":     "", // `#!/usr/bin/env python3` handled specially
}

// specializedExtensions lists the extensions that have a dedicated
// tree-sitter Parsing Strategy.
var specializedExtensions = map[string]bool{
	".py": true, ".pyw": true,
	".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
	".ts": true, ".tsx": true,
	".java": true,
	".go":   true,
	".m":    true, ".mm": true,
	".zig": true, ".zon": true,
}

// IsIndexableExtension reports whether ext (including the leading dot) is a
// member of the indexable extension set.
func IsIndexableExtension(ext string) bool { return indexableExtensions[ext] }

// IsSpecializedExtension reports whether ext has a dedicated Parsing
// Strategy rather than using the Fallback strategy.
func IsSpecializedExtension(ext string) bool { return specializedExtensions[ext] }
