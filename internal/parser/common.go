package parser

import (
	"sort"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// nodeText returns the verbatim source text spanned by node.
func nodeText(node *tree_sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if end > uint(len(source)) || start > end {
		return ""
	}
	return string(source[start:end])
}

// startLine returns node's 1-based start line.
func startLine(node *tree_sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// endLine returns node's 1-based end line.
func endLine(node *tree_sitter.Node) int {
	return int(node.EndPosition().Row) + 1
}

// capturedMatch is one query match as returned by runQuery, which groups a
// query's matches by the capture name given to the top-level node (the capture that has no ".subfield" suffix), so each
// language strategy can dispatch on "function", "method", "class", and so
// on the same way the query text names them.
type capturedMatch struct {
	node  tree_sitter.Node
	extra map[string]tree_sitter.Node // sub-captures like "function.name" keyed by suffix after the dot
}

func runQuery(query *tree_sitter.Query, root *tree_sitter.Node, source []byte) map[string][]capturedMatch {
	out := make(map[string][]capturedMatch)
	if query == nil || root == nil {
		return out
	}
	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	names := query.CaptureNames()
	matches := cursor.Matches(query, *root, source)
	for {
		m := matches.Next()
		if m == nil {
			break
		}
		// first pass: collect sub-captures (those containing a dot) keyed by
		// the capture that owns them
		extras := make(map[string]tree_sitter.Node)
		var primary *tree_sitter.Node
		var primaryName string
		for i := range m.Captures {
			c := &m.Captures[i]
			name := names[c.Index]
			if idx := indexOfDot(name); idx >= 0 {
				extras[name[idx+1:]] = c.Node
				continue
			}
			primary = &c.Node
			primaryName = name
		}
		if primary == nil {
			continue
		}
		out[primaryName] = append(out[primaryName], capturedMatch{node: *primary, extra: extras})
	}
	return out
}

func indexOfDot(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

// sortByLine stably sorts captured matches in source order, since
// tree-sitter's query cursor does not guarantee any particular order across
// distinct query patterns.
func sortByLine(matches []capturedMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].node.StartByte() < matches[j].node.StartByte()
	})
}

// enclosingAncestors walks node's Parent() chain and returns every ancestor
// whose Kind() is in containerKinds, closest ancestor first.
func enclosingAncestors(node *tree_sitter.Node, containerKinds map[string]bool) []*tree_sitter.Node {
	var out []*tree_sitter.Node
	cur := node.Parent()
	for cur != nil {
		if containerKinds[cur.Kind()] {
			out = append(out, cur)
		}
		cur = cur.Parent()
	}
	return out
}

// findEnclosing returns the smallest match (by byte span) among candidates
// whose range contains target, or nil if none contains it.
func findEnclosing(candidates []capturedMatch, target *tree_sitter.Node) *capturedMatch {
	var best *capturedMatch
	for i := range candidates {
		cand := &candidates[i]
		if cand.node.StartByte() <= target.StartByte() && target.EndByte() <= cand.node.EndByte() {
			if best == nil || (cand.node.EndByte()-cand.node.StartByte()) < (best.node.EndByte()-best.node.StartByte()) {
				best = cand
			}
		}
	}
	return best
}
