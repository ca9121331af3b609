package toolregistry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compileSchema parses and compiles an inline JSON-Schema document for a
// single tool, keyed under a synthetic resource URI so jsonschema can
// report useful error locations.
func compileSchema(qualifiedName string, raw []byte) (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing input_schema: %w", err)
	}
	uri := "mem://tool/" + qualifiedName
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(uri, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}
	return compiler.Compile(uri)
}

// validateArguments checks a tool call's raw JSON arguments against a
// compiled schema.
func validateArguments(schema *jsonschema.Schema, arguments []byte) error {
	if len(arguments) == 0 {
		arguments = []byte("{}")
	}
	var doc any
	if err := json.Unmarshal(arguments, &doc); err != nil {
		return fmt.Errorf("parsing arguments: %w", err)
	}
	return schema.Validate(doc)
}

// unmarshalArgs is the built-in handlers' shared argument decode helper.
func unmarshalArgs(raw []byte, v any) error {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("toolregistry: decoding arguments: %w", err)
	}
	return nil
}
