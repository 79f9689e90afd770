package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const objcSample = `#import <Foundation/Foundation.h>

@interface Counter : NSObject
- (void)increment;
@end

@implementation Counter
- (void)increment {
    NSLog(@"tick");
}
@end
`

func TestObjcStrategyParsesWithoutGrammarError(t *testing.T) {
	s := &objcStrategy{}
	fs, err := s.Parse("Counter.m", []byte(objcSample), "objective-c")
	require.NoError(t, err)
	assert.Equal(t, "objective-c", fs.Language)
	assert.Greater(t, fs.LineCount, 0)
}
