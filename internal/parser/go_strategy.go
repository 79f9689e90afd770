package parser

import (
	"fmt"
	"strings"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codeindexer/corex/internal/idutil"
	"github.com/codeindexer/corex/internal/types"
)

const goQuery = `
(function_declaration name: (identifier) @function.name) @function
(method_declaration
    receiver: (parameter_list) @method.receiver
    name: (field_identifier) @method.name) @method
(type_spec name: (type_identifier) @type.name) @type
(import_spec path: (interpreted_string_literal) @import.path) @import
(call_expression function: (identifier) @call.name) @call
(call_expression function: (selector_expression field: (field_identifier) @call.name)) @call
`

type goStrategy struct{}

func (s *goStrategy) Parse(path string, source []byte, language string) (types.FileSymbols, error) {
	start := time.Now()
	p := shared.getParser("go")
	if p == nil {
		return types.FileSymbols{}, &ParseGrammarError{Path: path, Language: "go", Reason: "parser unavailable"}
	}
	defer shared.putParser("go", p)

	tree := p.Parse(source, nil)
	if tree == nil || tree.RootNode() == nil {
		return types.FileSymbols{}, &ParseGrammarError{Path: path, Language: "go", Reason: "parser returned no tree"}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return types.FileSymbols{}, &ParseGrammarError{Path: path, Language: "go", Reason: "syntax error in source"}
	}

	query := shared.getQuery("go")
	groups := runQuery(query, root, source)

	var symbols []types.Symbol
	var imports []types.Import
	var calls []types.CallSite

	for _, m := range groups["function"] {
		name := nodeText(nameNode(m, "name"), source)
		if name == "" {
			continue
		}
		qn := idutil.QualifiedName(path, name)
		symbols = append(symbols, types.Symbol{
			QualifiedName: qn,
			Kind:          types.KindFunction,
			DeclaringFile: path,
			StartLine:     startLine(&m.node),
			EndLine:       endLine(&m.node),
			Exported:      isExportedGo(name),
		})
	}

	for _, m := range groups["method"] {
		node := m.node
		name := nodeText(nameNode(m, "name"), source)
		if name == "" {
			continue
		}
		recvType := goReceiverTypeName(&node, source)
		var qn string
		if recvType != "" {
			qn = idutil.QualifiedName(path, recvType, name)
		} else {
			qn = idutil.QualifiedName(path, name)
		}
		symbols = append(symbols, types.Symbol{
			QualifiedName:   qn,
			Kind:            types.KindMethod,
			DeclaringFile:   path,
			StartLine:       startLine(&node),
			EndLine:         endLine(&node),
			ParentQualified: parentQNFor(path, recvType),
			Exported:        isExportedGo(name),
		})
	}

	for _, m := range groups["type"] {
		name := nodeText(nameNode(m, "name"), source)
		if name == "" {
			continue
		}
		symbols = append(symbols, types.Symbol{
			QualifiedName: idutil.QualifiedName(path, name),
			Kind:          types.KindClass,
			DeclaringFile: path,
			StartLine:     startLine(&m.node),
			EndLine:       endLine(&m.node),
			Exported:      isExportedGo(name),
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
		caller := enclosingFunctionQN(path, &m.node, source, groups)
		calls = append(calls, types.CallSite{
			CallerQualified:    caller,
			CalleeSurfaceToken: name,
			Line:               startLine(&m.node),
		})
	}

	return types.FileSymbols{
		Path:                path,
		Language:            "go",
		Imports:             imports,
		Symbols:             symbols,
		CallSites:           calls,
		LineCount:           int(root.EndPosition().Row) + 1,
		ParseDurationMicros: time.Since(start).Microseconds(),
	}, nil
}

func nameNode(m capturedMatch, key string) *tree_sitter.Node {
	if n, ok := m.extra[key]; ok {
		return &n
	}
	return nil
}

func isExportedGo(name string) bool {
	if name == "" {
		return false
	}
	return name[0] >= 'A' && name[0] <= 'Z'
}

func goReceiverTypeName(method *tree_sitter.Node, source []byte) string {
	receiver := method.ChildByFieldName("receiver")
	if receiver == nil {
		return ""
	}
	// parameter_list -> parameter_declaration -> type (pointer_type | type_identifier)
	for i := uint(0); i < receiver.NamedChildCount(); i++ {
		decl := receiver.NamedChild(i)
		if decl == nil {
			continue
		}
		typeNode := decl.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		if typeNode.Kind() == "pointer_type" {
			inner := typeNode.NamedChild(0)
			if inner != nil {
				return nodeText(inner, source)
			}
			continue
		}
		return nodeText(typeNode, source)
	}
	return ""
}

func parentQNFor(path, typeName string) string {
	if typeName == "" {
		return ""
	}
	return idutil.QualifiedName(path, typeName)
}

// enclosingFunctionQN walks previously-extracted function/method matches to
// find the innermost one whose byte range contains callNode, giving the
// caller's qualified name for a call site. Falls back to a file-scoped
// local qualified name when no enclosing function is found (e.g. a call in
// a package-level var initializer).
func enclosingFunctionQN(path string, callNode *tree_sitter.Node, source []byte, groups map[string][]capturedMatch) string {
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
		return idutil.QualifiedName(path, idutil.LocalName(fmt.Sprintf("line%d", startLine(callNode))))
	}
	name := nodeText(nameNode(*best, "name"), source)
	if recvType := goReceiverTypeName(&best.node, source); recvType != "" {
		return idutil.QualifiedName(path, recvType, name)
	}
	return idutil.QualifiedName(path, name)
}
