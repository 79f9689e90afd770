// Package filter implements the File Filter: the decision of whether a
// candidate path is indexable at all, before any Parsing Strategy sees it.
package filter

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/codeindexer/corex/internal/debuglog"
)

// Filter decides inclusion for paths rooted at a single project root.
type Filter struct {
	root        string
	maxBytes    int64
	ignore      *IgnoreSet
	extraGlobs  []string // additional exclusion globs from project config
}

// New creates a Filter rooted at root with the given byte size cap and any
// extra project-local exclusion globs (config.Config.ExtraExcludeGlobs).
func New(root string, maxBytes int64, extraGlobs []string) *Filter {
	f := &Filter{
		root:       filepath.Clean(root),
		maxBytes:   maxBytes,
		ignore:     NewIgnoreSet(root),
		extraGlobs: extraGlobs,
	}
	f.ignore.SetReadErrorHook(func(path string, err error) {
		debuglog.WarnOncePath(path, "ignore file unreadable, treating as no rule: %s: %v", path, err)
	})
	return f
}

// Included decides whether p is indexable. p must be an absolute path
// rooted at the Filter's project root.
func (f *Filter) Included(p string) bool {
	rel, err := filepath.Rel(f.root, p)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	if f.blockedDirSegment(rel) {
		return false
	}
	base := filepath.Base(p)
	if f.blockedBasename(base) {
		return false
	}
	if f.ignore.Ignored(p, false) {
		return false
	}
	if f.matchesExtraExclude(rel) {
		return false
	}

	info, err := os.Stat(p)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if info.Size() > f.maxBytes {
		return false
	}
	if isBinary(p) {
		return false
	}

	ext := extensionOf(base)
	if ext != "" {
		return IsIndexableExtension(ext)
	}
	// extensionless: only included if the shebang names a known interpreter
	return shebangExtension(p) != ""
}

// IncludedDir reports whether a directory should be descended into at all,
// used by the Shallow Index walk to prune whole subtrees cheaply.
func (f *Filter) IncludedDir(p string) bool {
	rel, err := filepath.Rel(f.root, p)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return true
	}
	if f.blockedDirSegment(rel + "/") {
		return false
	}
	if f.ignore.Ignored(p, true) {
		return false
	}
	return true
}

func (f *Filter) blockedDirSegment(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if builtinDirBlocklist[seg] {
			return true
		}
	}
	return false
}

func (f *Filter) blockedBasename(base string) bool {
	if builtinFileExactBlocklist[base] {
		return true
	}
	for _, suffix := range builtinFileSuffixBlocklist {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}

func (f *Filter) matchesExtraExclude(rel string) bool {
	for _, pattern := range f.extraGlobs {
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
		if matchDoublestar(pattern, rel) {
			return true
		}
	}
	return false
}

// DetectedLanguage returns the language tag used for a path's FileRecord,
// by extension table, or by shebang for extensionless files.
func DetectedLanguage(p string) string {
	ext := extensionOf(filepath.Base(p))
	if ext == "" {
		ext = shebangExtension(p)
	}
	return languageForExtension(ext)
}

func extensionOf(base string) string {
	ext := filepath.Ext(base)
	return strings.ToLower(ext)
}

// shebangExtension reads the first line of p (if it starts with #!) and
// maps the named interpreter to a pseudo-extension, handling the common
// "#!/usr/bin/env python3" indirection.
func shebangExtension(p string) string {
	f, err := os.Open(p)
	if err != nil {
		return ""
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "#!") {
		return ""
	}
	fields := strings.Fields(strings.TrimPrefix(line, "#!"))
	if len(fields) == 0 {
		return ""
	}
	interpreter := filepath.Base(fields[0])
	if interpreter == "env" && len(fields) > 1 {
		interpreter = filepath.Base(fields[1])
	}
	return shebangInterpreters[interpreter]
}

// isBinary reports whether the first 8 KiB of p contain a null byte.
func isBinary(p string) bool {
	f, err := os.Open(p)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 8192)
	n, _ := f.Read(buf)
	for i := 0; i < n; i++ {
		if buf[i] == 0 {
			return true
		}
	}
	return false
}
