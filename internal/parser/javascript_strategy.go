package parser

import (
	"strings"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codeindexer/corex/internal/idutil"
	"github.com/codeindexer/corex/internal/types"
)

const javascriptQuery = `
(function_declaration name: (identifier) @function.name) @function
(method_definition name: (property_identifier) @method.name) @method
(class_declaration name: (identifier) @class.name) @class
(variable_declarator
    name: (identifier) @function.name
    value: [(arrow_function) (function_expression)]) @function
(import_statement source: (string) @import.path) @import
(call_expression function: (identifier) @call.name) @call
(call_expression function: (member_expression property: (property_identifier) @call.name)) @call
`

var jsContainerKinds = map[string]bool{"function_declaration": true, "method_definition": true, "class_declaration": true, "arrow_function": true, "function_expression": true}

type javascriptStrategy struct{}

func (s *javascriptStrategy) Parse(path string, source []byte, language string) (types.FileSymbols, error) {
	return jsFamilyParse(path, source, "javascript", "javascript")
}

func jsFamilyParse(path string, source []byte, engineLang, reportedLang string) (types.FileSymbols, error) {
	start := time.Now()
	p := shared.getParser(engineLang)
	if p == nil {
		return types.FileSymbols{}, &ParseGrammarError{Path: path, Language: reportedLang, Reason: "parser unavailable"}
	}
	defer shared.putParser(engineLang, p)

	tree := p.Parse(source, nil)
	if tree == nil || tree.RootNode() == nil {
		return types.FileSymbols{}, &ParseGrammarError{Path: path, Language: reportedLang, Reason: "parser returned no tree"}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return types.FileSymbols{}, &ParseGrammarError{Path: path, Language: reportedLang, Reason: "syntax error in source"}
	}

	query := shared.getQuery(engineLang)
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
			QualifiedName: idutil.QualifiedName(path, jsScopeNames(&node, source, name)...),
			Kind:          types.KindFunction,
			DeclaringFile: path,
			StartLine:     startLine(&node),
			EndLine:       endLine(&node),
			Exported:      true,
		})
	}

	for _, m := range groups["method"] {
		node := m.node
		name := nodeText(nameNode(m, "name"), source)
		if name == "" {
			continue
		}
		class := jsEnclosingClassName(&node, source)
		var parentQN string
		if class != "" {
			parentQN = idutil.QualifiedName(path, class)
		}
		symbols = append(symbols, types.Symbol{
			QualifiedName:   idutil.QualifiedName(path, jsScopeNames(&node, source, name)...),
			Kind:            types.KindMethod,
			DeclaringFile:   path,
			StartLine:       startLine(&node),
			EndLine:         endLine(&node),
			ParentQualified: parentQN,
			Exported:        true,
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
		text := strings.Trim(nodeText(&pathNode, source), "\"'`")
		if text != "" {
			imports = append(imports, types.Import{Source: text})
		}
	}

	for _, m := range groups["call"] {
		name := nodeText(nameNode(m, "name"), source)
		if name == "" {
			continue
		}
		caller := jsEnclosingQN(path, &m.node, source, groups)
		calls = append(calls, types.CallSite{
			CallerQualified:    caller,
			CalleeSurfaceToken: name,
			Line:               startLine(&m.node),
		})
	}

	return types.FileSymbols{
		Path:                path,
		Language:            reportedLang,
		Imports:             imports,
		Symbols:             symbols,
		CallSites:           calls,
		LineCount:           int(root.EndPosition().Row) + 1,
		ParseDurationMicros: time.Since(start).Microseconds(),
	}, nil
}

// jsScopeNames builds the dotted scope chain for nested functions, e.g. a
// function literal assigned inside another function becomes "outer.inner".
func jsScopeNames(node *tree_sitter.Node, source []byte, own string) []string {
	ancestors := enclosingAncestors(node, jsContainerKinds)
	names := make([]string, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		n := jsContainerName(ancestors[i], source)
		if n != "" {
			names = append(names, n)
		}
	}
	names = append(names, own)
	return names
}

func jsContainerName(node *tree_sitter.Node, source []byte) string {
	switch node.Kind() {
	case "function_declaration", "class_declaration":
		return nodeText(node.ChildByFieldName("name"), source)
	case "method_definition":
		return nodeText(node.ChildByFieldName("name"), source)
	case "arrow_function", "function_expression":
		if parent := node.Parent(); parent != nil && parent.Kind() == "variable_declarator" {
			return nodeText(parent.ChildByFieldName("name"), source)
		}
	}
	return ""
}

func jsEnclosingClassName(node *tree_sitter.Node, source []byte) string {
	ancestors := enclosingAncestors(node, map[string]bool{"class_declaration": true})
	if len(ancestors) == 0 {
		return ""
	}
	return nodeText(ancestors[0].ChildByFieldName("name"), source)
}

func jsEnclosingQN(path string, callNode *tree_sitter.Node, source []byte, groups map[string][]capturedMatch) string {
	var best *capturedMatch
	if f := findEnclosing(groups["function"], callNode); f != nil {
		best = f
	}
	if m := findEnclosing(groups["method"], callNode); m != nil {
		if best == nil || (m.node.EndByte()-m.node.StartByte()) < (best.node.EndByte()-best.node.StartByte()) {
			best = m
		}
	}
	if best == nil {
		return idutil.QualifiedName(path, idutil.LocalName("module"))
	}
	name := nodeText(nameNode(*best, "name"), source)
	return idutil.QualifiedName(path, jsScopeNames(&best.node, source, name)...)
}
