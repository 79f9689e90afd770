package parser

import (
	"strings"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codeindexer/corex/internal/idutil"
	"github.com/codeindexer/corex/internal/types"
)

const zigQuery = `
(function_declaration name: (identifier) @function.name) @function
(variable_declaration
    name: (identifier) @class.name
    value: (container_decl)) @class
(call_expression
    function: (builtin_identifier) @import.builtin
    arguments: (arguments (string) @import.path)) @import
(call_expression function: (identifier) @call.name) @call
`

type zigStrategy struct{}

func (s *zigStrategy) Parse(path string, source []byte, language string) (types.FileSymbols, error) {
	start := time.Now()
	p := shared.getParser("zig")
	if p == nil {
		return types.FileSymbols{}, &ParseGrammarError{Path: path, Language: "zig", Reason: "parser unavailable"}
	}
	defer shared.putParser("zig", p)

	tree := p.Parse(source, nil)
	if tree == nil || tree.RootNode() == nil {
		return types.FileSymbols{}, &ParseGrammarError{Path: path, Language: "zig", Reason: "parser returned no tree"}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return types.FileSymbols{}, &ParseGrammarError{Path: path, Language: "zig", Reason: "syntax error in source"}
	}

	query := shared.getQuery("zig")
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
		symbols = append(symbols, types.Symbol{
			QualifiedName: idutil.QualifiedName(path, name),
			Kind:          types.KindFunction,
			DeclaringFile: path,
			StartLine:     startLine(&node),
			EndLine:       endLine(&node),
			Exported:      true,
		})
	}

	for _, m := range groups["class"] {
		node := m.node
		name := nodeText(nameNode(m, "name"), source)
		if name == "" {
			continue
		}
		symbols = append(symbols, types.Symbol{
			QualifiedName: idutil.QualifiedName(path, name),
			Kind:          types.KindClass,
			DeclaringFile: path,
			StartLine:     startLine(&node),
			EndLine:       endLine(&node),
			Exported:      true,
		})
	}

	for _, m := range groups["import"] {
		pathNode := m.extra["path"]
		text := strings.Trim(nodeText(&pathNode, source), "\"")
		if text != "" {
			imports = append(imports, types.Import{Source: text})
		}
	}

	for _, m := range groups["call"] {
		name := nodeText(nameNode(m, "name"), source)
		if name == "" {
			continue
		}
		caller := zigEnclosingQN(path, &m.node, source, groups)
		calls = append(calls, types.CallSite{
			CallerQualified:    caller,
			CalleeSurfaceToken: name,
			Line:               startLine(&m.node),
		})
	}

	return types.FileSymbols{
		Path:                path,
		Language:            "zig",
		Imports:             imports,
		Symbols:             symbols,
		CallSites:           calls,
		LineCount:           int(root.EndPosition().Row) + 1,
		ParseDurationMicros: time.Since(start).Microseconds(),
	}, nil
}

func zigEnclosingQN(path string, callNode *tree_sitter.Node, source []byte, groups map[string][]capturedMatch) string {
	best := findEnclosing(groups["function"], callNode)
	if best == nil {
		return idutil.QualifiedName(path, idutil.LocalName("file-scope"))
	}
	name := nodeText(nameNode(*best, "name"), source)
	return idutil.QualifiedName(path, name)
}
