package search

import (
	"context"
	"os/exec"
	"time"
)

// backendKind names a text-search backend in priority order. builtinKind is
// not probed; it is the always-present final fallback.
type backendKind string

const (
	backendUgrep   backendKind = "ugrep"
	backendRipgrep backendKind = "ripgrep"
	backendAg      backendKind = "ag"
	backendGrep    backendKind = "grep"
	backendBuiltin backendKind = "builtin"
)

// backendBinary maps a backend to the executable name probed on PATH.
var backendBinary = map[backendKind]string{
	backendUgrep:   "ugrep",
	backendRipgrep: "rg",
	backendAg:      "ag",
	backendGrep:    "grep",
}

var probeOrder = []backendKind{backendUgrep, backendRipgrep, backendAg, backendGrep}

// probeBackend reports whether kind resolves on PATH and runs --version
// successfully within a short timeout.
func probeBackend(kind backendKind) bool {
	bin, ok := backendBinary[kind]
	if !ok {
		return false
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, path, "--version")
	return cmd.Run() == nil
}

// selectBackend returns the first backend in priority order that probes
// successfully, or backendBuiltin if none do.
func selectBackend() backendKind {
	for _, k := range probeOrder {
		if probeBackend(k) {
			return k
		}
	}
	return backendBuiltin
}
