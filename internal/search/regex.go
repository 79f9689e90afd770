package search

import (
	"fmt"
	"regexp"

	"github.com/codeindexer/corex/internal/errlib"
)

// catastrophicPattern matches a group containing its own unbounded
// quantifier that is itself repeated with an unbounded quantifier, e.g.
// (a+)+ or (a*)* — the classic exponential-backtracking shape. It is a
// structural heuristic, not a full backtracking-cost analysis.
var catastrophicPattern = regexp.MustCompile(`\([^()]*[*+][^()]*\)[*+]`)

// validateRegex compiles pattern and rejects catastrophic constructs before
// it ever reaches a backend.
func validateRegex(pattern string) (*regexp.Regexp, error) {
	if catastrophicPattern.MatchString(pattern) {
		return nil, fmt.Errorf("nested quantifier on unbounded scope: %w", errlib.ErrInvalidRegex)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, errlib.ErrInvalidRegex)
	}
	return re, nil
}
