package parser

import (
	"github.com/codeindexer/corex/internal/types"
)

const typescriptQuery = `
(function_declaration name: (identifier) @function.name) @function
(method_definition name: (property_identifier) @method.name) @method
(class_declaration name: (type_identifier) @class.name) @class
(interface_declaration name: (type_identifier) @class.name) @class
(variable_declarator
    name: (identifier) @function.name
    value: [(arrow_function) (function_expression)]) @function
(import_statement source: (string) @import.path) @import
(call_expression function: (identifier) @call.name) @call
(call_expression function: (member_expression property: (property_identifier) @call.name)) @call
`

type typescriptStrategy struct{}

func (s *typescriptStrategy) Parse(path string, source []byte, language string) (types.FileSymbols, error) {
	return jsFamilyParse(path, source, "typescript", "typescript")
}
