// Package debuglog is a small trace facility layered over the standard
// library's log package, gated behind an explicit enable flag so normal
// runs stay silent.
package debuglog

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	enabled bool
	out     io.Writer = os.Stderr
)

// SetEnabled turns trace logging on or off.
func SetEnabled(v bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = v
}

// SetOutput redirects trace output; passing nil disables output without
// touching the enabled flag.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

func logf(prefix, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if !enabled || out == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	log.New(out, prefix, log.LstdFlags).Output(3, msg)
}

// Indexing logs a trace message from the filter/shallow/deepindex packages.
func Indexing(format string, args ...interface{}) { logf("[indexing] ", format, args...) }

// Watch logs a trace message from the watcher package.
func Watch(format string, args ...interface{}) { logf("[watch] ", format, args...) }

// Search logs a trace message from the search router.
func Search(format string, args ...interface{}) { logf("[search] ", format, args...) }

// Once per failing path, used by the File Filter when an ignore file cannot
// be read; tracks paths already warned about so a flaky filesystem does not
// spam the log on every walk.
var warnedOnce sync.Map

// WarnOncePath logs format once per distinct path, then becomes a no-op for
// that path. Errors here never abort a directory walk.
func WarnOncePath(path, format string, args ...interface{}) {
	if _, loaded := warnedOnce.LoadOrStore(path, struct{}{}); loaded {
		return
	}
	logf("[warn] ", format, args...)
}
