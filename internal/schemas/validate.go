// Package schemas holds the JSON Schemas for the service's structured
// artifacts and validates documents against them.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// MatchResult is the schema a language model's match verdict must satisfy.
//
//go:embed match_result.schema.json
var MatchResult string

// ExtractedProfile is the schema of the redacted profile produced from a CV.
//
//go:embed extracted_profile.schema.json
var ExtractedProfile string

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Name    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Name, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Name, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// Validator is a compiled schema, safe for concurrent use.
type Validator struct {
	name   string
	schema *gojsonschema.Schema
}

// Compile parses a schema once for repeated validation.
func Compile(name, schemaContent string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaContent))
	if err != nil {
		return nil, &SchemaLoadError{Name: name, Message: "invalid schema", Cause: err}
	}
	return &Validator{name: name, schema: schema}, nil
}

// MustCompile is Compile for the embedded schemas; it panics on error.
func MustCompile(name, schemaContent string) *Validator {
	v, err := Compile(name, schemaContent)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks a JSON document. Malformed JSON is reported as a
// ValidationError on the root.
func (v *Validator) Validate(jsonContent string) error {
	result, err := v.schema.Validate(gojsonschema.NewStringLoader(jsonContent))
	if err != nil {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	return toValidationError(result)
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	v, err := Compile("(string schema)", schemaContent)
	if err != nil {
		return err
	}
	return v.Validate(jsonContent)
}

func toValidationError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
