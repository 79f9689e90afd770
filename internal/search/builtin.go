package search

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/codeindexer/corex/internal/types"
)

// builtinSearch is the always-present fallback scanner: a plain sequential
// read of every candidate file with a per-line regex match. It never shells
// out and never fails to initialize.
func builtinSearch(ctx context.Context, root string, files []string, re *regexp.Regexp, pattern string, opts types.SearchOptions) ([]types.SearchMatch, error) {
	var matches []types.SearchMatch
	if re != nil && !opts.CaseSensitive {
		re = regexp.MustCompile("(?i)" + re.String())
	}

	for _, rel := range files {
		select {
		case <-ctx.Done():
			return matches, ctx.Err()
		default:
		}

		hits, err := scanFile(root, rel, re, opts, pattern)
		if err != nil {
			continue // per-file read errors are skipped, not fatal, for search
		}
		matches = append(matches, hits...)
		if len(matches) >= opts.MaxMatches {
			return matches[:opts.MaxMatches], nil
		}
	}
	return matches, nil
}

func scanFile(root, rel string, re *regexp.Regexp, opts types.SearchOptions, fuzzyToken string) ([]types.SearchMatch, error) {
	f, err := os.Open(filepath.Join(root, rel))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var hits []types.SearchMatch
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		haystack := line
		if !opts.CaseSensitive {
			haystack = strings.ToLower(line)
		}

		if opts.Fuzzy {
			if idx, ok := wordBoundaryPartialMatch(haystack, strings.ToLower(fuzzyToken)); ok {
				hits = append(hits, types.SearchMatch{
					Path: rel, Line: lineNo, Column: idx + 1, Preview: line, FuzzyDowngraded: true,
				})
			}
			continue
		}

		loc := re.FindStringIndex(haystack)
		if loc != nil {
			hits = append(hits, types.SearchMatch{Path: rel, Line: lineNo, Column: loc[0] + 1, Preview: line})
		}
	}
	return hits, sc.Err()
}

// wordBoundaryPartialMatch reports whether any whitespace-delimited word in
// haystack contains token as a substring. This is the fuzzy downgrade used
// when the active backend has no true edit-distance fuzzy mode.
func wordBoundaryPartialMatch(haystack, token string) (int, bool) {
	if token == "" {
		return 0, false
	}
	offset := 0
	for _, word := range strings.Fields(haystack) {
		idx := strings.Index(haystack[offset:], word)
		if strings.Contains(word, token) {
			return offset + idx, true
		}
		offset += idx + len(word)
	}
	return 0, false
}

// rankByFuzzySimilarity orders fuzzy-downgraded matches by Levenshtein
// similarity to the original query so the most plausible typo-correction
// candidates surface first, even though inclusion itself used the coarser
// word-boundary rule above.
func rankByFuzzySimilarity(query string, matches []types.SearchMatch) {
	type scored struct {
		m     types.SearchMatch
		score float32
	}
	scoredMatches := make([]scored, len(matches))
	for i, m := range matches {
		word := closestWord(query, m.Preview)
		sim, err := edlib.StringsSimilarity(query, word, edlib.Levenshtein)
		if err != nil {
			sim = 0
		}
		scoredMatches[i] = scored{m: m, score: sim}
	}
	sort.SliceStable(scoredMatches, func(i, j int) bool { return scoredMatches[i].score > scoredMatches[j].score })
	for i := range matches {
		matches[i] = scoredMatches[i].m
	}
}

func closestWord(query, line string) string {
	best, bestLen := "", -1
	for _, w := range strings.Fields(line) {
		if bestLen == -1 || abs(len(w)-len(query)) < bestLen {
			best, bestLen = w, abs(len(w)-len(query))
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
