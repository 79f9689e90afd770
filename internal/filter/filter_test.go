package filter

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIncludedExcludesBlockedDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "node_modules", "x.js"), []byte("var x = 1;"))
	writeFile(t, filepath.Join(root, "main.js"), []byte("var x = 1;"))

	f := New(root, DefaultMaxFileSizeBytesForTest(), nil)
	if f.Included(filepath.Join(root, "node_modules", "x.js")) {
		t.Fatal("expected node_modules file to be excluded")
	}
	if !f.Included(filepath.Join(root, "main.js")) {
		t.Fatal("expected main.js to be included")
	}
}

func TestIncludedRespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), []byte("*.log\n!important.log\n"))
	writeFile(t, filepath.Join(root, "debug.log"), []byte("log"))
	writeFile(t, filepath.Join(root, "important.log"), []byte("log"))
	writeFile(t, filepath.Join(root, "main.py"), []byte("print(1)"))

	f := New(root, DefaultMaxFileSizeBytesForTest(), nil)
	if f.Included(filepath.Join(root, "debug.log")) {
		t.Fatal("expected debug.log excluded by gitignore")
	}
	// important.log is negated but still not in the indexable extension set,
	// so it should remain excluded for that reason.
	if f.Included(filepath.Join(root, "important.log")) {
		t.Fatal("expected important.log excluded: .log is not an indexable extension")
	}
	if !f.Included(filepath.Join(root, "main.py")) {
		t.Fatal("expected main.py included")
	}
}

func TestIncludedExcludesOversizedFile(t *testing.T) {
	root := t.TempDir()
	big := make([]byte, 1200)
	writeFile(t, filepath.Join(root, "big.py"), big)

	f := New(root, 1000, nil)
	if f.Included(filepath.Join(root, "big.py")) {
		t.Fatal("expected oversized file excluded")
	}
}

func TestIncludedExcludesBinary(t *testing.T) {
	root := t.TempDir()
	data := append([]byte("hello"), 0, 'w', 'o', 'r', 'l', 'd')
	writeFile(t, filepath.Join(root, "bin.py"), data)

	f := New(root, DefaultMaxFileSizeBytesForTest(), nil)
	if f.Included(filepath.Join(root, "bin.py")) {
		t.Fatal("expected binary file excluded")
	}
}

func TestIncludedShebangExtensionless(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "script"), []byte("#!/usr/bin/env python3\nprint(1)\n"))
	writeFile(t, filepath.Join(root, "noshebang"), []byte("just text"))

	f := New(root, DefaultMaxFileSizeBytesForTest(), nil)
	if !f.Included(filepath.Join(root, "script")) {
		t.Fatal("expected shebang script included")
	}
	if f.Included(filepath.Join(root, "noshebang")) {
		t.Fatal("expected extensionless file without shebang excluded")
	}
}

func TestIncludedExtraExcludeGlob(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "vendor", "pkg", "x.go"), []byte("package x"))

	f := New(root, DefaultMaxFileSizeBytesForTest(), []string{"vendor/**"})
	if f.Included(filepath.Join(root, "vendor", "pkg", "x.go")) {
		t.Fatal("expected vendor file excluded by extra glob")
	}
}

func DefaultMaxFileSizeBytesForTest() int64 { return 1 << 20 }
