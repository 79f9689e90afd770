// Package search implements the Search Router: backend probing, regex
// validation, fuzzy translation, and the always-present built-in scanner
// fallback.
package search

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/codeindexer/corex/internal/debuglog"
	"github.com/codeindexer/corex/internal/errlib"
	"github.com/codeindexer/corex/internal/types"
)

const defaultMaxMatches = 1000

// FileLister returns the current set of indexable file relative paths,
// backed by the Shallow Index. The Search Router narrows this set with
// opts.FileGlob before ever invoking a backend subprocess.
type FileLister func() ([]string, error)

// Router probes available text-search backends once and dispatches queries
// to the active one, downgrading on BackendFailure (never on Timeout).
type Router struct {
	root   string
	lister FileLister

	mu     sync.Mutex
	active backendKind
	probed bool
}

// New creates a Router rooted at root, sourcing candidate files from
// lister.
func New(root string, lister FileLister) *Router {
	return &Router{root: root, lister: lister}
}

// ActiveBackend returns the currently selected backend name, probing on
// first call. Exposed for get_settings_info.
func (r *Router) ActiveBackend() string {
	r.ensureProbed()
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.active)
}

// InvalidateProbe forces the next query to re-probe backends, for callers
// that know the environment's available tools have changed underneath
// them.
func (r *Router) InvalidateProbe() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probed = false
}

func (r *Router) ensureProbed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.probed {
		return
	}
	r.active = selectBackend()
	r.probed = true
	debuglog.Search("active backend: %s", r.active)
}

// Search runs one query end to end: validate, narrow the file set, dispatch
// to the active backend, downgrade and retry on backend failure. Results
// are buffered in memory; a streaming channel is unnecessary at the scale
// this engine targets.
func (r *Router) Search(ctx context.Context, pattern string, opts types.SearchOptions) ([]types.SearchMatch, error) {
	if opts.MaxMatches <= 0 {
		opts.MaxMatches = defaultMaxMatches
	}

	searchPattern := pattern
	if !opts.Regex {
		searchPattern = regexp.QuoteMeta(pattern)
	}
	re, err := validateRegex(searchPattern)
	if err != nil {
		return nil, err
	}

	files, err := r.narrowedFiles(opts.FileGlob)
	if err != nil {
		return nil, err
	}

	r.ensureProbed()
	r.mu.Lock()
	active := r.active
	r.mu.Unlock()

	for {
		var matches []types.SearchMatch
		var runErr error

		switch active {
		case backendBuiltin:
			matches, runErr = builtinSearch(ctx, r.root, files, re, pattern, opts)
		default:
			matches, runErr = r.runExternal(ctx, active, searchPattern, files, opts)
		}

		if runErr == nil {
			if opts.Fuzzy {
				rankByFuzzySimilarity(pattern, matches)
			}
			if len(matches) > opts.MaxMatches {
				matches = matches[:opts.MaxMatches]
			}
			return matches, nil
		}

		var be *errlib.BackendError
		if !asBackendError(runErr, &be) || be.Timeout {
			return nil, runErr
		}

		debuglog.Search("backend %s failed, downgrading: %v", active, runErr)
		next, ok := nextBackend(active)
		if !ok {
			return nil, runErr
		}
		r.mu.Lock()
		r.active = next
		active = next
		r.mu.Unlock()
	}
}

func asBackendError(err error, target **errlib.BackendError) bool {
	be, ok := err.(*errlib.BackendError)
	if ok {
		*target = be
	}
	return ok
}

func nextBackend(current backendKind) (backendKind, bool) {
	for i, k := range probeOrder {
		if k == current && i+1 < len(probeOrder) {
			return probeOrder[i+1], true
		}
	}
	return backendBuiltin, current != backendBuiltin
}

func (r *Router) narrowedFiles(glob string) ([]string, error) {
	all, err := r.lister()
	if err != nil {
		return nil, err
	}
	if glob == "" {
		return all, nil
	}
	if _, err := doublestar.Match(glob, "a"); err != nil {
		return nil, fmt.Errorf("%v: %w", err, errlib.ErrInvalidGlob)
	}
	narrowed := make([]string, 0, len(all))
	for _, f := range all {
		if matched, _ := doublestar.Match(glob, f); matched {
			narrowed = append(narrowed, f)
		}
	}
	sort.Strings(narrowed)
	return narrowed, nil
}

// runExternal shells out to an external backend, constrained to the
// already-glob-narrowed file set, and parses its standard grep-style
// "path:line:col:text" output.
func (r *Router) runExternal(ctx context.Context, kind backendKind, pattern string, files []string, opts types.SearchOptions) ([]types.SearchMatch, error) {
	if len(files) == 0 {
		return nil, nil
	}

	bin := backendBinary[kind]
	args := buildArgs(kind, pattern, opts)
	args = append(args, files...)

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = r.root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, &errlib.BackendError{Timeout: true, Backend: string(kind)}
	}
	if err != nil {
		// grep-family tools exit 1 for "no matches", not a failure.
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, &errlib.BackendError{Backend: string(kind), Stderr: stderr.String()}
	}

	downgraded := opts.Fuzzy && kind != backendUgrep
	return parseGrepOutput(stdout.Bytes(), opts.MaxMatches, downgraded), nil
}

func buildArgs(kind backendKind, pattern string, opts types.SearchOptions) []string {
	var args []string
	switch kind {
	case backendUgrep:
		args = []string{"-H", "-n", "--column", "-r"}
		if opts.Fuzzy {
			args = append(args, "-Z3") // true edit-distance fuzzy, distance 3
		}
		if !opts.CaseSensitive {
			args = append(args, "-i")
		}
		args = append(args, pattern)
	case backendRipgrep:
		args = []string{"-H", "-n", "--column", "--no-heading"}
		if !opts.CaseSensitive {
			args = append(args, "-i")
		}
		args = append(args, wordBoundaryOrLiteral(pattern, opts))
	case backendAg:
		args = []string{"--filename", "--numbers", "--column", "--nogroup"}
		if !opts.CaseSensitive {
			args = append(args, "-i")
		}
		args = append(args, wordBoundaryOrLiteral(pattern, opts))
	case backendGrep:
		args = []string{"-rnH", "-E"}
		if !opts.CaseSensitive {
			args = append(args, "-i")
		}
		args = append(args, wordBoundaryOrLiteral(pattern, opts))
	}
	return args
}

// wordBoundaryOrLiteral implements the non-ugrep fuzzy downgrade: a
// word-boundary partial-match regex instead of true edit-distance fuzzy.
func wordBoundaryOrLiteral(pattern string, opts types.SearchOptions) string {
	if !opts.Fuzzy {
		return pattern
	}
	return `\w*` + regexp.QuoteMeta(pattern) + `\w*`
}

func parseGrepOutput(out []byte, max int, downgraded bool) []types.SearchMatch {
	var matches []types.SearchMatch
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() && len(matches) < max {
		parts := strings.SplitN(sc.Text(), ":", 4)
		if len(parts) < 4 {
			continue
		}
		line, err1 := strconv.Atoi(parts[1])
		col, err2 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil {
			continue
		}
		matches = append(matches, types.SearchMatch{
			Path: filepath.ToSlash(parts[0]), Line: line, Column: col, Preview: parts[3],
			FuzzyDowngraded: downgraded,
		})
	}
	return matches
}
