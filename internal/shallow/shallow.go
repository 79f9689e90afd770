// Package shallow implements the Shallow Index: a cheap path list plus
// minimal per-file metadata, built on set-path when no valid persisted index
// can be loaded, on every watcher-triggered rebuild, and on refresh.
package shallow

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/codeindexer/corex/internal/config"
	"github.com/codeindexer/corex/internal/debuglog"
	"github.com/codeindexer/corex/internal/filter"
	"github.com/codeindexer/corex/internal/idutil"
	"github.com/codeindexer/corex/internal/types"
	"github.com/codeindexer/corex/pkg/pathutil"
)

// Index is the built Shallow Index for one project.
type Index struct {
	ProjectKey      string
	BuildUnixNano   int64
	Root            string
	Files           []types.FileRecord // sorted by RelPath
	LanguageCounts  map[string]int
}

// Build walks root with the File Filter and produces a new Index. The
// directory walk itself is sequential (filepath.WalkDir visits one entry at
// a time), but each included file's stat/line-count work is dispatched to a
// bounded worker pool sized by cfg.MaxParallelism, matching the Deep
// Index's phase-1 parallelism model.
func Build(ctx context.Context, root string, f *filter.Filter, cfg *config.Config) (*Index, error) {
	candidates, err := collectCandidates(ctx, root, f)
	if err != nil {
		return nil, err
	}

	parallelism := cfg.MaxParallelism
	if parallelism < 1 {
		parallelism = runtime.NumCPU()
	}

	records := make([]types.FileRecord, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, parallelism)

	for i, absPath := range candidates {
		i, absPath := i, absPath
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			rec, err := buildRecord(root, absPath)
			if err != nil {
				debuglog.Indexing("skipping %s: %v", absPath, err)
				return nil
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil && err != context.Canceled {
		return nil, err
	}

	var out []types.FileRecord
	langCounts := make(map[string]int)
	for _, rec := range records {
		if rec.RelPath == "" {
			continue // buildRecord failed for this slot
		}
		out = append(out, rec)
		langCounts[rec.Language]++
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })

	return &Index{
		ProjectKey:     idutil.ProjectKey(root),
		Root:           root,
		Files:          out,
		LanguageCounts: langCounts,
	}, nil
}

// collectCandidates walks root sequentially, pruning excluded directories
// via f.IncludedDir and collecting absolute paths for files that pass
// f.Included.
func collectCandidates(ctx context.Context, root string, f *filter.Filter) ([]string, error) {
	var out []string
	visitedDirs := make(map[string]bool)

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			real, err := filepath.EvalSymlinks(path)
			if err == nil {
				if visitedDirs[real] {
					return filepath.SkipDir
				}
				visitedDirs[real] = true
			}
			if path != root && !f.IncludedDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if f.Included(path) {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

func buildRecord(root, absPath string) (types.FileRecord, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return types.FileRecord{}, err
	}
	rel, err := pathutil.Rel(root, absPath)
	if err != nil {
		return types.FileRecord{}, err
	}
	lang := filter.DetectedLanguage(absPath)
	lineCount, _ := countLines(absPath)

	return types.FileRecord{
		RelPath:   rel,
		Language:  lang,
		SizeBytes: info.Size(),
		ModTime:   info.ModTime().Unix(),
		LineCount: lineCount,
	}, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	count := 0
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}

// FilesMatching returns the relative paths in idx matching glob, in sorted
// order. Glob semantics follow doublestar: "*" within a segment, "**"
// across segments, "?" for a single character.
func (idx *Index) FilesMatching(glob string) []string {
	var out []string
	for _, rec := range idx.Files {
		ok, err := doublestar.Match(pathutil.CaseFold(glob), pathutil.CaseFold(rec.RelPath))
		if err != nil {
			continue
		}
		if ok {
			out = append(out, rec.RelPath)
		}
	}
	sort.Strings(out)
	return out
}

// LanguageHistogram returns a defensive copy of the language -> count map.
func (idx *Index) LanguageHistogram() map[string]int {
	out := make(map[string]int, len(idx.LanguageCounts))
	for k, v := range idx.LanguageCounts {
		out[k] = v
	}
	return out
}
