// Package deepindex implements the Deep Index: a two-phase Collect/Link
// build that produces a full symbol table with a resolved cross-file call
// graph.
package deepindex

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/codeindexer/corex/internal/config"
	"github.com/codeindexer/corex/internal/debuglog"
	"github.com/codeindexer/corex/internal/idutil"
	"github.com/codeindexer/corex/internal/parser"
	"github.com/codeindexer/corex/internal/shallow"
	"github.com/codeindexer/corex/internal/types"
	"github.com/codeindexer/corex/pkg/pathutil"
)

// Index is the built Deep Index for one project.
type Index struct {
	ProjectKey      string
	BuildUnixNano   int64
	FileCount       int
	Files           map[string]types.FileSymbols // keyed by relative path
	Symbols         map[string]types.Symbol       // keyed by qualified name
	Edges           []types.CallEdge              // sorted (caller_qn, callee_qn)
	LanguageCounts  map[string]int
	Failures        []types.FileParseFailure // sorted by path
	AmbiguityCount  int
}

// Build runs Collect then Link over every file in shallowIdx, rooted at
// root. Collect is bounded-parallel over files; Link is single-writer over
// the merged, immutable symbol table.
func Build(ctx context.Context, root string, shallowIdx *shallow.Index, cfg *config.Config) (*Index, error) {
	fileSymbols, failures, langCounts, err := collect(ctx, root, shallowIdx, cfg)
	if err != nil {
		return nil, err
	}

	symbols, edges, ambiguity := link(fileSymbols)

	sort.Slice(failures, func(i, j int) bool { return failures[i].Path < failures[j].Path })

	return &Index{
		ProjectKey:     idutil.ProjectKey(root),
		FileCount:      len(fileSymbols),
		Files:          fileSymbols,
		Symbols:        symbols,
		Edges:          edges,
		LanguageCounts: langCounts,
		Failures:       failures,
		AmbiguityCount: ambiguity,
	}, nil
}

func collect(ctx context.Context, root string, shallowIdx *shallow.Index, cfg *config.Config) (map[string]types.FileSymbols, []types.FileParseFailure, map[string]int, error) {
	parallelism := cfg.MaxParallelism
	if parallelism < 1 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > config.DefaultMaxParallelism {
		parallelism = config.DefaultMaxParallelism
	}

	type result struct {
		rel     string
		fs      types.FileSymbols
		failure *types.FileParseFailure
	}
	results := make([]result, len(shallowIdx.Files))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, parallelism)

	for i, rec := range shallowIdx.Files {
		i, rec := i, rec
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			abs := filepath.Join(root, filepath.FromSlash(rec.RelPath))
			source, err := os.ReadFile(abs)
			if err != nil {
				results[i] = result{rel: rec.RelPath, failure: &types.FileParseFailure{Path: rec.RelPath, Error: err.Error()}}
				return nil
			}

			strategy := parser.Select(abs, "")
			fs, err := strategy.Parse(rec.RelPath, source, rec.Language)
			if err != nil {
				results[i] = result{rel: rec.RelPath, failure: &types.FileParseFailure{Path: rec.RelPath, Error: err.Error()}}
				return nil
			}
			fs.Path = rec.RelPath
			results[i] = result{rel: rec.RelPath, fs: fs}
			return nil
		})
	}
	if err := g.Wait(); err != nil && err != context.Canceled {
		return nil, nil, nil, err
	}

	fileSymbols := make(map[string]types.FileSymbols, len(results))
	var failures []types.FileParseFailure
	langCounts := make(map[string]int)
	for _, r := range results {
		if r.failure != nil {
			failures = append(failures, *r.failure)
			debuglog.Indexing("parse failure for %s: %s", r.failure.Path, r.failure.Error)
			continue
		}
		fileSymbols[r.rel] = r.fs
		langCounts[r.fs.Language]++
	}
	return fileSymbols, failures, langCounts, nil
}

// link builds the qualified-name -> Symbol table and resolves every call
// site's callee_surface_token to a Symbol through an ordered cascade of
// same-file, same-class, import-mapped, and global-uniqueness lookups.
// Returns the symbol table, the sorted edge list, and the count of calls
// dropped due to an ambiguous match at some stage.
func link(fileSymbols map[string]types.FileSymbols) (map[string]types.Symbol, []types.CallEdge, int) {
	symbols := make(map[string]types.Symbol)
	localNameIndex := make(map[string][]string) // local name -> qualified names, project-wide
	fileLocalIndex := make(map[string]map[string][]string) // rel path -> local name -> qns in that file

	for rel, fs := range fileSymbols {
		fileIdx := make(map[string][]string)
		for _, sym := range fs.Symbols {
			symbols[sym.QualifiedName] = sym
			ln := localNameOf(sym.QualifiedName)
			localNameIndex[ln] = append(localNameIndex[ln], sym.QualifiedName)
			fileIdx[ln] = append(fileIdx[ln], sym.QualifiedName)
		}
		fileLocalIndex[rel] = fileIdx
	}

	ambiguity := 0
	var edges []types.CallEdge
	seen := make(map[[2]string]bool)

	var relPaths []string
	for rel := range fileSymbols {
		relPaths = append(relPaths, rel)
	}
	sort.Strings(relPaths)

	for _, rel := range relPaths {
		fs := fileSymbols[rel]
		fileIdx := fileLocalIndex[rel]

		for _, call := range fs.CallSites {
			if idutil.IsLocal(localNameOf(call.CallerQualified)) {
				continue
			}
			callee, ok := resolveCallee(call, rel, fs, fileIdx, fileSymbols, symbols, localNameIndex, &ambiguity)
			if !ok {
				continue
			}
			key := [2]string{call.CallerQualified, callee}
			if seen[key] {
				continue
			}
			seen[key] = true
			edges = append(edges, types.CallEdge{CallerQualified: call.CallerQualified, CalleeQualified: callee})
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].CallerQualified != edges[j].CallerQualified {
			return edges[i].CallerQualified < edges[j].CallerQualified
		}
		return edges[i].CalleeQualified < edges[j].CalleeQualified
	})

	return symbols, edges, ambiguity
}

func resolveCallee(
	call types.CallSite,
	rel string,
	fs types.FileSymbols,
	fileIdx map[string][]string,
	allFiles map[string]types.FileSymbols,
	symbols map[string]types.Symbol,
	globalIdx map[string][]string,
	ambiguity *int,
) (string, bool) {
	token := call.CalleeSurfaceToken
	caller, callerKnown := symbols[call.CallerQualified]

	// (a) same-file lexical scope match
	callerComponents := scopeComponents(call.CallerQualified)
	var candidates []string
	for _, qn := range fileIdx[token] {
		if isLexicallyVisible(qn, callerComponents) {
			candidates = append(candidates, qn)
		}
	}
	if r, ok := pick(candidates, ambiguity); ok {
		return r, true
	}

	// (b) same-file class-method match
	if callerKnown && caller.ParentQualified != "" {
		candidates = candidates[:0]
		for _, qn := range fileIdx[token] {
			if symbols[qn].ParentQualified == caller.ParentQualified {
				candidates = append(candidates, qn)
			}
		}
		if r, ok := pick(candidates, ambiguity); ok {
			return r, true
		}
	}

	// (c) import-mapped target file
	targets := resolveImportTargets(rel, fs.Imports, allFiles)
	candidates = candidates[:0]
	for _, target := range targets {
		targetIdx, ok := indexFor(target, allFiles)
		if !ok {
			continue
		}
		for _, qn := range targetIdx[token] {
			if len(scopeComponents(qn)) == 1 {
				candidates = append(candidates, qn)
			}
		}
	}
	if r, ok := pick(candidates, ambiguity); ok {
		return r, true
	}

	// (d) unique global match
	candidates = append(candidates[:0], globalIdx[token]...)
	if r, ok := pick(candidates, ambiguity); ok {
		return r, true
	}

	return "", false
}

func pick(candidates []string, ambiguity *int) (string, bool) {
	switch len(candidates) {
	case 0:
		return "", false
	case 1:
		return candidates[0], true
	default:
		*ambiguity++
		return "", false
	}
}

func indexFor(rel string, allFiles map[string]types.FileSymbols) (map[string][]string, bool) {
	fs, ok := allFiles[rel]
	if !ok {
		return nil, false
	}
	idx := make(map[string][]string)
	for _, sym := range fs.Symbols {
		ln := localNameOf(sym.QualifiedName)
		idx[ln] = append(idx[ln], sym.QualifiedName)
	}
	return idx, true
}

// localNameOf returns the last dotted component of a qualified name's scope
// part, e.g. "a/b.py::C.m" -> "m".
func localNameOf(qn string) string {
	parts := scopeComponents(qn)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// scopeComponents splits a qualified name's scope part on ".", e.g.
// "a/b.py::C.m" -> ["C", "m"]. Returns nil for malformed input.
func scopeComponents(qn string) []string {
	idx := strings.Index(qn, "::")
	if idx < 0 {
		return nil
	}
	scope := qn[idx+2:]
	if scope == "" {
		return nil
	}
	return strings.Split(scope, ".")
}

// isLexicallyVisible reports whether a symbol with qualified-name scope
// components calleeComponents is visible from a call site whose enclosing
// scope chain is callerComponents: the callee's own enclosing scope (all
// but its last component) must be a prefix of the caller's scope chain.
func isLexicallyVisible(calleeQN string, callerComponents []string) bool {
	calleeComponents := scopeComponents(calleeQN)
	if len(calleeComponents) == 0 {
		return false
	}
	prefix := calleeComponents[:len(calleeComponents)-1]
	if len(prefix) > len(callerComponents) {
		return false
	}
	for i, seg := range prefix {
		if callerComponents[i] != seg {
			return false
		}
	}
	return true
}

// resolveImportTargets best-effort maps a file's import statements to
// candidate project-relative file paths, trying the importing file's own
// directory and the project root, with the extensions implied by the
// importing file's own language family.
func resolveImportTargets(fromRel string, imports []types.Import, allFiles map[string]types.FileSymbols) []string {
	dir := filepath.Dir(fromRel)
	var out []string
	for _, imp := range imports {
		if imp.ResolvedFile != "" {
			if _, ok := allFiles[imp.ResolvedFile]; ok {
				out = append(out, imp.ResolvedFile)
			}
			continue
		}
		for _, candidate := range importCandidates(dir, imp.Source) {
			if _, ok := allFiles[candidate]; ok {
				out = append(out, candidate)
			}
		}
	}
	return out
}

var relativeImportExtensions = []string{".py", ".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".java", ".go"}

func importCandidates(fromDir, source string) []string {
	source = strings.Trim(source, "\"'`")
	source = strings.TrimPrefix(source, "import ")
	source = strings.TrimSpace(source)
	if source == "" {
		return nil
	}

	var bases []string
	switch {
	case strings.HasPrefix(source, "./") || strings.HasPrefix(source, "../"):
		bases = append(bases, pathutil.ToSlash(filepath.Join(fromDir, source)))
	case strings.Contains(source, "/"):
		bases = append(bases, source, pathutil.ToSlash(filepath.Join(fromDir, source)))
	case strings.Contains(source, "."):
		dotted := strings.ReplaceAll(source, ".", "/")
		bases = append(bases, dotted)
	default:
		return nil
	}

	var out []string
	for _, base := range bases {
		for _, ext := range relativeImportExtensions {
			out = append(out, base+ext)
			out = append(out, base+"/index"+ext)
		}
	}
	return out
}
