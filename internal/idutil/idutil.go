// Package idutil derives stable, content-addressed identifiers: the
// per-project scratch-directory key and qualified symbol names.
package idutil

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ProjectKey returns the stable 12-hex-character project key for an absolute
// project root, used to name the IndexRoot directory. The key is derived
// from the canonical (Clean'd, absolute) path so that "./foo" and "foo"
// resolve to the same scratch location.
func ProjectKey(absRoot string) string {
	canon := filepath.Clean(absRoot)
	sum := xxhash.Sum64String(canon)
	return fmt.Sprintf("%012x", sum&0xFFFFFFFFFFFF)
}

// QualifiedName builds a "file::scope.name" qualified name from a
// project-relative file path and a dotted scope chain, e.g.
// QualifiedName("a/b.py", "C", "m") -> "a/b.py::C.m".
func QualifiedName(relPath string, scope ...string) string {
	nonEmpty := scope[:0]
	for _, s := range scope {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return relPath + "::" + strings.Join(nonEmpty, ".")
}

// LocalName wraps a file-scoped symbol name so it can never collide with a
// genuinely global qualified name and must not be resolved across files.
func LocalName(name string) string {
	return "local " + name
}

// IsLocal reports whether a qualified name segment was produced by LocalName.
func IsLocal(name string) bool {
	return strings.HasPrefix(name, "local ")
}
