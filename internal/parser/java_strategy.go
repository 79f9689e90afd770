package parser

import (
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codeindexer/corex/internal/idutil"
	"github.com/codeindexer/corex/internal/types"
)

const javaQuery = `
(package_declaration [(scoped_identifier) (identifier)] @package.name) @package
(class_declaration name: (identifier) @class.name) @class
(interface_declaration name: (identifier) @class.name) @class
(enum_declaration name: (identifier) @class.name) @class
(method_declaration name: (identifier) @method.name) @method
(constructor_declaration name: (identifier) @method.name) @method
(import_declaration [(scoped_identifier) (identifier)] @import.path) @import
(method_invocation name: (identifier) @call.name) @call
`

var javaContainerKinds = map[string]bool{"class_declaration": true, "interface_declaration": true, "enum_declaration": true}

type javaStrategy struct{}

func (s *javaStrategy) Parse(path string, source []byte, language string) (types.FileSymbols, error) {
	start := time.Now()
	p := shared.getParser("java")
	if p == nil {
		return types.FileSymbols{}, &ParseGrammarError{Path: path, Language: "java", Reason: "parser unavailable"}
	}
	defer shared.putParser("java", p)

	tree := p.Parse(source, nil)
	if tree == nil || tree.RootNode() == nil {
		return types.FileSymbols{}, &ParseGrammarError{Path: path, Language: "java", Reason: "parser returned no tree"}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return types.FileSymbols{}, &ParseGrammarError{Path: path, Language: "java", Reason: "syntax error in source"}
	}

	query := shared.getQuery("java")
	groups := runQuery(query, root, source)

	packageName := ""
	if len(groups["package"]) > 0 {
		packageName = nodeText(nameNode(groups["package"][0], "name"), source)
	}

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
			QualifiedName: javaQualify(path, packageName, javaScopeNames(&node, source, name)),
			Kind:          types.KindClass,
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
		scope := javaScopeNames(&node, source, name)
		var parentQN string
		if len(scope) > 1 {
			parentQN = javaQualify(path, packageName, scope[:len(scope)-1])
		}
		symbols = append(symbols, types.Symbol{
			QualifiedName:   javaQualify(path, packageName, scope),
			Kind:            types.KindMethod,
			DeclaringFile:   path,
			StartLine:       startLine(&node),
			EndLine:         endLine(&node),
			ParentQualified: parentQN,
			Exported:        true,
		})
	}

	for _, m := range groups["import"] {
		text := nodeText(&m.node, source)
		if text != "" {
			imports = append(imports, types.Import{Source: text})
		}
	}

	for _, m := range groups["call"] {
		name := nodeText(nameNode(m, "name"), source)
		if name == "" {
			continue
		}
		caller := javaEnclosingQN(path, packageName, &m.node, source, groups)
		calls = append(calls, types.CallSite{
			CallerQualified:    caller,
			CalleeSurfaceToken: name,
			Line:               startLine(&m.node),
		})
	}

	return types.FileSymbols{
		Path:                path,
		Language:            "java",
		Imports:             imports,
		Symbols:             symbols,
		CallSites:           calls,
		LineCount:           int(root.EndPosition().Row) + 1,
		ParseDurationMicros: time.Since(start).Microseconds(),
	}, nil
}

// javaScopeNames returns the root-to-leaf chain of enclosing
// class/interface/enum names followed by own (method or nested type) name.
func javaScopeNames(node *tree_sitter.Node, source []byte, own string) []string {
	ancestors := enclosingAncestors(node, javaContainerKinds)
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

// javaQualify prefixes the package name onto a class/method scope chain so
// qualified names stay unique across packages that declare the same class.
func javaQualify(path, packageName string, scope []string) string {
	if packageName == "" {
		return idutil.QualifiedName(path, scope...)
	}
	full := make([]string, 0, len(scope)+1)
	full = append(full, packageName)
	full = append(full, scope...)
	return idutil.QualifiedName(path, full...)
}

func javaEnclosingQN(path, packageName string, callNode *tree_sitter.Node, source []byte, groups map[string][]capturedMatch) string {
	best := findEnclosing(groups["method"], callNode)
	if best == nil {
		return javaQualify(path, packageName, []string{idutil.LocalName("static-init")})
	}
	name := nodeText(nameNode(*best, "name"), source)
	return javaQualify(path, packageName, javaScopeNames(&best.node, source, name))
}
