// Package parser implements the Parsing Strategies: one tree-sitter-backed
// strategy per specialized language, plus the metadata only Fallback
// strategy for every other indexable extension.
package parser

import (
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_objc "github.com/tree-sitter-grammars/tree-sitter-objc/bindings/go"
	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// langSetup is registered once per specialized language at package init and
// used to populate a per-language parser pool plus its compiled query.
type langSetup struct {
	language   *tree_sitter.Language
	queryText  string
}

// engine owns one parser pool and one compiled query per specialized
// language. Parsers are not safe for concurrent use, so phase-1 bounded
// parallelism borrows a parser from the pool for the duration of one file
// and returns it afterward; queries are immutable once compiled and safe to
// share across goroutines.
type engine struct {
	mu      sync.Mutex
	pools   map[string]*sync.Pool // language tag -> pool of *tree_sitter.Parser
	queries map[string]*tree_sitter.Query
	setups  map[string]langSetup
}

var shared = newEngine()

func newEngine() *engine {
	e := &engine{
		pools:   make(map[string]*sync.Pool),
		queries: make(map[string]*tree_sitter.Query),
		setups:  make(map[string]langSetup),
	}
	e.register("go", tree_sitter.NewLanguage(tree_sitter_go.Language()), goQuery)
	e.register("python", tree_sitter.NewLanguage(tree_sitter_python.Language()), pythonQuery)
	e.register("javascript", tree_sitter.NewLanguage(tree_sitter_javascript.Language()), javascriptQuery)
	e.register("typescript", tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()), typescriptQuery)
	e.register("java", tree_sitter.NewLanguage(tree_sitter_java.Language()), javaQuery)
	e.register("objective-c", tree_sitter.NewLanguage(tree_sitter_objc.Language()), objcQuery)
	e.register("zig", tree_sitter.NewLanguage(tree_sitter_zig.Language()), zigQuery)
	return e
}

func (e *engine) register(lang string, language *tree_sitter.Language, queryText string) {
	e.setups[lang] = langSetup{language: language, queryText: queryText}

	query, _ := tree_sitter.NewQuery(language, queryText)
	// The go-tree-sitter binding can return a typed-nil *Query alongside a
	// non-nil error interface value on some grammar/query combinations; a
	// nil check on the interface alone is not reliable, so the language
	// stays registered in setups even if the query failed to compile. With
	// no compiled query, runQuery returns no matches, so Strategy.Parse
	// yields no symbols, imports or call sites for that language.
	if query != nil {
		e.queries[lang] = query
	}

	langCopy := language
	e.pools[lang] = &sync.Pool{
		New: func() interface{} {
			p := tree_sitter.NewParser()
			_ = p.SetLanguage(langCopy)
			return p
		},
	}
}

func (e *engine) getParser(lang string) *tree_sitter.Parser {
	pool, ok := e.pools[lang]
	if !ok {
		return nil
	}
	return pool.Get().(*tree_sitter.Parser)
}

func (e *engine) putParser(lang string, p *tree_sitter.Parser) {
	if pool, ok := e.pools[lang]; ok && p != nil {
		pool.Put(p)
	}
}

func (e *engine) getQuery(lang string) *tree_sitter.Query {
	return e.queries[lang]
}
