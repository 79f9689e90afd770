package filter

import "github.com/bmatcuk/doublestar/v4"

// matchDoublestar applies doublestar glob semantics (supporting "**") to a
// project-relative path, used for extra exclusion globs from project config
// that may span directory segments.
func matchDoublestar(pattern, relPath string) bool {
	matched, err := doublestar.Match(pattern, relPath)
	return err == nil && matched
}

var extensionLanguage = map[string]string{
	".py": "python", ".pyw": "python",
	".js": "javascript", ".jsx": "javascript", ".mjs": "javascript", ".cjs": "javascript",
	".ts": "typescript", ".tsx": "typescript",
	".java": "java",
	".go":   "go",
	".m":    "objective-c", ".mm": "objective-c",
	".zig": "zig", ".zon": "zig",
	".c": "c", ".cc": "cpp", ".cpp": "cpp", ".cxx": "cpp", ".h": "c", ".hpp": "cpp",
	".rs": "rust", ".rb": "ruby", ".php": "php", ".cs": "csharp",
	".kt": "kotlin", ".kts": "kotlin", ".scala": "scala", ".swift": "swift",
	".lua": "lua", ".pl": "perl", ".r": "r",
	".sh": "shell", ".bash": "shell", ".ps1": "powershell",
	".html": "html", ".css": "css", ".scss": "scss", ".sass": "sass", ".less": "less",
	".vue": "vue", ".svelte": "svelte", ".astro": "astro",
	".hbs": "handlebars", ".handlebars": "handlebars", ".ejs": "ejs", ".pug": "pug",
	".md": "markdown", ".mdx": "markdown",
	".json": "json", ".xml": "xml", ".yml": "yaml", ".yaml": "yaml", ".toml": "toml", ".ini": "ini",
	".sql": "sql", ".ddl": "sql", ".dml": "sql",
}

func languageForExtension(ext string) string {
	if lang, ok := extensionLanguage[ext]; ok {
		return lang
	}
	return "unknown"
}
