// Package schemas validates plan and test metadata documents against the
// JSON schemas shipped with the binary.
package schemas

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	sigsyaml "sigs.k8s.io/yaml"
)

//go:embed data/plan.schema.yaml data/test.schema.yaml
var files embed.FS

// Validator compiles the embedded schemas once and validates documents
// against them.
type Validator struct {
	planSchema *jsonschema.Schema
	testSchema *jsonschema.Schema
}

// NewValidator loads and compiles the embedded schemas.
func NewValidator() (*Validator, error) {
	planSchema, err := loadSchema("data/plan.schema.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to load plan schema: %w", err)
	}
	testSchema, err := loadSchema("data/test.schema.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to load test schema: %w", err)
	}
	return &Validator{planSchema: planSchema, testSchema: testSchema}, nil
}

// ValidatePlan checks a plan document. The document is either raw YAML bytes
// or an already decoded value.
func (v *Validator) ValidatePlan(document interface{}) error {
	value, err := toJSONValue(document)
	if err != nil {
		return err
	}
	return v.planSchema.Validate(value)
}

// ValidateTest checks a single test metadata record.
func (v *Validator) ValidateTest(document interface{}) error {
	value, err := toJSONValue(document)
	if err != nil {
		return err
	}
	return v.testSchema.Validate(value)
}

// loadSchema reads an embedded YAML schema and compiles it.
func loadSchema(name string) (*jsonschema.Schema, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}

	jsonData, err := sigsyaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to convert schema to JSON: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(jsonData)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return schema, nil
}

// toJSONValue normalizes a document into the JSON-decoded form the schema
// library validates: raw YAML bytes are converted directly, anything else
// takes a round trip through encoding/json.
func toJSONValue(document interface{}) (interface{}, error) {
	var jsonData []byte
	switch doc := document.(type) {
	case []byte:
		converted, err := sigsyaml.YAMLToJSON(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert document to JSON: %w", err)
		}
		jsonData = converted
	default:
		marshaled, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal document: %w", err)
		}
		jsonData = marshaled
	}

	var value interface{}
	if err := json.Unmarshal(jsonData, &value); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return value, nil
}
