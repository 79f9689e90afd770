package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsSample = `import { readFile } from 'fs';

class Loader {
  load() {
    return this.parse();
  }

  parse() {
    return readFile('x');
  }
}

function boot() {
  return new Loader().load();
}
`

func TestJavascriptStrategyExtractsClassAndMethods(t *testing.T) {
	s := &javascriptStrategy{}
	fs, err := s.Parse("app.js", []byte(jsSample), "javascript")
	require.NoError(t, err)

	var names []string
	for _, sym := range fs.Symbols {
		names = append(names, sym.QualifiedName)
	}
	assert.Contains(t, names, "app.js::Loader")
	assert.Contains(t, names, "app.js::Loader.load")
	assert.Contains(t, names, "app.js::Loader.parse")
	assert.Contains(t, names, "app.js::boot")

	require.Len(t, fs.Imports, 1)
	assert.Equal(t, "fs", fs.Imports[0].Source)
}

const javaSample = `package com.example.app;

import java.util.List;

public class Service {
    public void run() {
        helper();
    }

    private void helper() {
        System.out.println("hi");
    }
}
`

func TestJavaStrategyQualifiesWithPackage(t *testing.T) {
	s := &javaStrategy{}
	fs, err := s.Parse("Service.java", []byte(javaSample), "java")
	require.NoError(t, err)

	var names []string
	for _, sym := range fs.Symbols {
		names = append(names, sym.QualifiedName)
	}
	assert.Contains(t, names, "Service.java::com.example.app.Service")
	assert.Contains(t, names, "Service.java::com.example.app.Service.run")
	assert.Contains(t, names, "Service.java::com.example.app.Service.helper")
}
