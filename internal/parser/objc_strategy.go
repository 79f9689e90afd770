package parser

import (
	"strings"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codeindexer/corex/internal/idutil"
	"github.com/codeindexer/corex/internal/types"
)

// Objective-C's grammar exposes method selectors as a sequence of
// keyword-declarator parts rather than a single name token, so a method's
// display name is reconstructed by joining the identifier descendants of
// every child outside the method body with ":" (so a two-part selector
// reads "initWithFrame:style", with no trailing colon), rather than matched
// directly by the query.
const objcQuery = `
(class_interface name: (identifier) @class.name) @class
(class_implementation name: (identifier) @class.name) @class
(protocol_declaration name: (identifier) @class.name) @class
(method_definition) @method
(function_definition declarator: (function_declarator declarator: (identifier) @function.name)) @function
(preproc_import) @import
(message_expression) @call
`

type objcStrategy struct{}

func (s *objcStrategy) Parse(path string, source []byte, language string) (types.FileSymbols, error) {
	start := time.Now()
	p := shared.getParser("objective-c")
	if p == nil {
		return types.FileSymbols{}, &ParseGrammarError{Path: path, Language: "objective-c", Reason: "parser unavailable"}
	}
	defer shared.putParser("objective-c", p)

	tree := p.Parse(source, nil)
	if tree == nil || tree.RootNode() == nil {
		return types.FileSymbols{}, &ParseGrammarError{Path: path, Language: "objective-c", Reason: "parser returned no tree"}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return types.FileSymbols{}, &ParseGrammarError{Path: path, Language: "objective-c", Reason: "syntax error in source"}
	}

	query := shared.getQuery("objective-c")
	groups := runQuery(query, root, source)

	var symbols []types.Symbol
	var imports []types.Import
	var calls []types.CallSite

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

	for _, m := range groups["method"] {
		node := m.node
		selector := objcSelector(&node, source)
		if selector == "" {
			continue
		}
		owner := objcEnclosingClassName(&node, source)
		var qn, parentQN string
		if owner != "" {
			qn = idutil.QualifiedName(path, owner, selector)
			parentQN = idutil.QualifiedName(path, owner)
		} else {
			qn = idutil.QualifiedName(path, selector)
		}
		symbols = append(symbols, types.Symbol{
			QualifiedName:   qn,
			Kind:            types.KindMethod,
			DeclaringFile:   path,
			StartLine:       startLine(&node),
			EndLine:         endLine(&node),
			ParentQualified: parentQN,
			Exported:        true,
		})
	}

	for _, m := range groups["import"] {
		text := strings.TrimSpace(nodeText(&m.node, source))
		if text != "" {
			imports = append(imports, types.Import{Source: text})
		}
	}

	for _, m := range groups["call"] {
		selector := objcSelector(&m.node, source)
		if selector == "" {
			continue
		}
		caller := objcEnclosingQN(path, &m.node, source, groups)
		calls = append(calls, types.CallSite{
			CallerQualified:    caller,
			CalleeSurfaceToken: selector,
			Line:               startLine(&m.node),
		})
	}

	return types.FileSymbols{
		Path:                path,
		Language:            "objective-c",
		Imports:             imports,
		Symbols:             symbols,
		CallSites:           calls,
		LineCount:           int(root.EndPosition().Row) + 1,
		ParseDurationMicros: time.Since(start).Microseconds(),
	}, nil
}

// objcSelector joins a method_definition's or message_expression's
// identifier descendants with ":" to approximate its Objective-C selector.
func objcSelector(node *tree_sitter.Node, source []byte) string {
	var parts []string
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if n == nil {
			return
		}
		if n.Kind() == "identifier" {
			parts = append(parts, nodeText(n, source))
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			walk(n.NamedChild(i))
		}
	}
	// descend into every child except the method body (compound_statement),
	// to avoid pulling in every identifier referenced in the method
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "compound_statement":
			continue
		default:
			walk(child)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts, ":")
}

func objcEnclosingClassName(node *tree_sitter.Node, source []byte) string {
	ancestors := enclosingAncestors(node, map[string]bool{"class_implementation": true, "class_interface": true})
	if len(ancestors) == 0 {
		return ""
	}
	return nodeText(ancestors[0].ChildByFieldName("name"), source)
}

func objcEnclosingQN(path string, callNode *tree_sitter.Node, source []byte, groups map[string][]capturedMatch) string {
	best := findEnclosing(groups["method"], callNode)
	if best == nil {
		if f := findEnclosing(groups["function"], callNode); f != nil {
			name := nodeText(nameNode(*f, "name"), source)
			return idutil.QualifiedName(path, name)
		}
		return idutil.QualifiedName(path, idutil.LocalName("file-scope"))
	}
	selector := objcSelector(&best.node, source)
	owner := objcEnclosingClassName(&best.node, source)
	if owner != "" {
		return idutil.QualifiedName(path, owner, selector)
	}
	return idutil.QualifiedName(path, selector)
}
