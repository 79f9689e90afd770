package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeindexer/corex/internal/types"
)

const goSample = `package sample

import "fmt"

type Greeter struct {
	Name string
}

func (g *Greeter) Greet() string {
	return fmt.Sprintf("hello %s", g.Name)
}

func main() {
	g := &Greeter{Name: "world"}
	fmt.Println(g.Greet())
}
`

func TestGoStrategyExtractsSymbols(t *testing.T) {
	s := &goStrategy{}
	fs, err := s.Parse("sample.go", []byte(goSample), "go")
	require.NoError(t, err)

	assert.Equal(t, "go", fs.Language)
	assert.Len(t, fs.Imports, 1)
	assert.Equal(t, "fmt", fs.Imports[0].Source)

	var names []string
	for _, sym := range fs.Symbols {
		names = append(names, sym.QualifiedName)
	}
	assert.Contains(t, names, "sample.go::main")
	assert.Contains(t, names, "sample.go::Greeter")
	assert.Contains(t, names, "sample.go::Greeter.Greet")

	for _, sym := range fs.Symbols {
		if sym.QualifiedName == "sample.go::Greeter.Greet" {
			assert.Equal(t, types.KindMethod, sym.Kind)
			assert.Equal(t, "sample.go::Greeter", sym.ParentQualified)
			assert.True(t, sym.Exported)
		}
	}

	var calleeTokens []string
	for _, c := range fs.CallSites {
		calleeTokens = append(calleeTokens, c.CalleeSurfaceToken)
	}
	assert.Contains(t, calleeTokens, "Sprintf")
	assert.Contains(t, calleeTokens, "Println")
	assert.Contains(t, calleeTokens, "Greet")
}

func TestGoStrategyRejectsBrokenSyntax(t *testing.T) {
	s := &goStrategy{}
	_, err := s.Parse("broken.go", []byte("package sample\n\nfunc ( {{{"), "go")
	require.Error(t, err)
	var grammarErr *ParseGrammarError
	require.ErrorAs(t, err, &grammarErr)
}

func TestSelectPicksGoStrategyByExtension(t *testing.T) {
	s := Select("main.go", "")
	_, ok := s.(*goStrategy)
	assert.True(t, ok)
}

func TestSelectFallsBackForUnknownExtension(t *testing.T) {
	s := Select("README.md", "")
	_, ok := s.(*FallbackStrategy)
	assert.True(t, ok)
}
