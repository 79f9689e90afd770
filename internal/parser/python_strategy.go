package parser

import (
	"strings"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codeindexer/corex/internal/idutil"
	"github.com/codeindexer/corex/internal/types"
)

const pythonQuery = `
(function_definition name: (identifier) @function.name) @function
(class_definition name: (identifier) @class.name) @class
(import_statement) @import
(import_from_statement) @import
(call function: (identifier) @call.name) @call
(call function: (attribute attribute: (identifier) @call.name)) @call
`

var pythonContainerKinds = map[string]bool{"function_definition": true, "class_definition": true}

type pythonStrategy struct{}

func (s *pythonStrategy) Parse(path string, source []byte, language string) (types.FileSymbols, error) {
	start := time.Now()
	p := shared.getParser("python")
	if p == nil {
		return types.FileSymbols{}, &ParseGrammarError{Path: path, Language: "python", Reason: "parser unavailable"}
	}
	defer shared.putParser("python", p)

	tree := p.Parse(source, nil)
	if tree == nil || tree.RootNode() == nil {
		return types.FileSymbols{}, &ParseGrammarError{Path: path, Language: "python", Reason: "parser returned no tree"}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return types.FileSymbols{}, &ParseGrammarError{Path: path, Language: "python", Reason: "syntax error in source"}
	}

	query := shared.getQuery("python")
	groups := runQuery(query, root, source)

	var symbols []types.Symbol
	var imports []types.Import
	var calls []types.CallSite

	for _, m := range groups["function"] {
		node := m.node
		name := nodeText(nameNode(m, "name"), source)
		if name == "" {
			continue
		}
		qn, kind, parentQN := pythonQualify(path, &node, name, source)
		symbols = append(symbols, types.Symbol{
			QualifiedName:   qn,
			Kind:            kind,
			DeclaringFile:   path,
			StartLine:       startLine(&node),
			EndLine:         endLine(&node),
			ParentQualified: parentQN,
			Exported:        !strings.HasPrefix(name, "_"),
		})
	}

	for _, m := range groups["class"] {
		node := m.node
		name := nodeText(nameNode(m, "name"), source)
		if name == "" {
			continue
		}
		symbols = append(symbols, types.Symbol{
			QualifiedName: idutil.QualifiedName(path, pythonScopeNames(&node, source, name)...),
			Kind:          types.KindClass,
			DeclaringFile: path,
			StartLine:     startLine(&node),
			EndLine:       endLine(&node),
			Exported:      !strings.HasPrefix(name, "_"),
		})
	}

	for _, m := range groups["import"] {
		text := strings.TrimSpace(nodeText(&m.node, source))
		if text != "" {
			imports = append(imports, types.Import{Source: text})
		}
	}

	for _, m := range groups["call"] {
		name := nodeText(nameNode(m, "name"), source)
		if name == "" {
			continue
		}
		caller := pythonEnclosingQN(path, &m.node, source, groups)
		calls = append(calls, types.CallSite{
			CallerQualified:    caller,
			CalleeSurfaceToken: name,
			Line:               startLine(&m.node),
		})
	}

	return types.FileSymbols{
		Path:                path,
		Language:            "python",
		Imports:             imports,
		Symbols:             symbols,
		CallSites:           calls,
		LineCount:           int(root.EndPosition().Row) + 1,
		ParseDurationMicros: time.Since(start).Microseconds(),
	}, nil
}

// pythonScopeNames returns the root-to-leaf chain of enclosing
// function/class names followed by own, e.g. ["C"] + "m" -> ["C", "m"].
func pythonScopeNames(node *tree_sitter.Node, source []byte, own string) []string {
	ancestors := enclosingAncestors(node, pythonContainerKinds)
	names := make([]string, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		n := ancestors[i].ChildByFieldName("name")
		if n != nil {
			names = append(names, nodeText(n, source))
		}
	}
	names = append(names, own)
	return names
}

func pythonQualify(path string, node *tree_sitter.Node, name string, source []byte) (string, types.SymbolKind, string) {
	ancestors := enclosingAncestors(node, pythonContainerKinds)
	qn := idutil.QualifiedName(path, pythonScopeNames(node, source, name)...)
	if len(ancestors) == 0 {
		return qn, types.KindFunction, ""
	}
	nearest := ancestors[0]
	if nearest.Kind() == "class_definition" {
		className := nodeText(nearest.ChildByFieldName("name"), source)
		return qn, types.KindMethod, idutil.QualifiedName(path, className)
	}
	return qn, types.KindFunction, ""
}

func pythonEnclosingQN(path string, callNode *tree_sitter.Node, source []byte, groups map[string][]capturedMatch) string {
	best := findEnclosing(groups["function"], callNode)
	if best == nil {
		return idutil.QualifiedName(path, idutil.LocalName("module"))
	}
	name := nodeText(nameNode(*best, "name"), source)
	qn, _, _ := pythonQualify(path, &best.node, name, source)
	return qn
}
