package deepindex

import (
	"sort"

	"github.com/codeindexer/corex/internal/types"
)

// LookupQN returns the Symbol for a qualified name, if present.
func (idx *Index) LookupQN(qn string) (types.Symbol, bool) {
	sym, ok := idx.Symbols[qn]
	return sym, ok
}

// Summarize returns the FileSummary contract for one relative path: line
// count, language, import list, and every declared symbol decorated with
// its resolved reverse call graph (called_by).
func (idx *Index) Summarize(relPath string) (types.FileSummary, bool) {
	fs, ok := idx.Files[relPath]
	if !ok {
		return types.FileSummary{}, false
	}

	calledBy := idx.calledByIndex()

	symbols := make([]types.SymbolWithUsage, 0, len(fs.Symbols))
	for _, sym := range fs.Symbols {
		callers := append([]string(nil), calledBy[sym.QualifiedName]...)
		sort.Strings(callers)
		symbols = append(symbols, types.SymbolWithUsage{Symbol: sym, CalledBy: callers})
	}
	sort.Slice(symbols, func(i, j int) bool {
		return symbols[i].QualifiedName < symbols[j].QualifiedName
	})

	return types.FileSummary{
		Path:      relPath,
		Language:  fs.Language,
		LineCount: fs.LineCount,
		Imports:   fs.Imports,
		Symbols:   symbols,
	}, true
}

func (idx *Index) calledByIndex() map[string][]string {
	out := make(map[string][]string, len(idx.Edges))
	for _, e := range idx.Edges {
		out[e.CalleeQualified] = append(out[e.CalleeQualified], e.CallerQualified)
	}
	return out
}
