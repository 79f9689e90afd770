package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tsSample = `import { Writer } from './writer';

interface Loggable {
  log(message: string): void;
}

class Recorder implements Loggable {
  log(message: string): void {
    this.flush(message);
  }

  private flush(message: string): void {
    console.log(message);
  }
}
`

func TestTypescriptStrategyExtractsInterfaceAndClass(t *testing.T) {
	s := &typescriptStrategy{}
	fs, err := s.Parse("recorder.ts", []byte(tsSample), "typescript")
	require.NoError(t, err)

	var names []string
	for _, sym := range fs.Symbols {
		names = append(names, sym.QualifiedName)
	}
	assert.Contains(t, names, "recorder.ts::Loggable")
	assert.Contains(t, names, "recorder.ts::Recorder")
	assert.Contains(t, names, "recorder.ts::Recorder.log")
	assert.Contains(t, names, "recorder.ts::Recorder.flush")

	require.Len(t, fs.Imports, 1)
	assert.Equal(t, "./writer", fs.Imports[0].Source)
}
