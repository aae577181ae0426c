package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"

	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/jsonc"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/schemas"
)

// SchemaError describes the first schema violation found in a document.
type SchemaError struct {
	// Source names the validated document, usually a file path.
	Source string
	// Location is the JSON pointer of the offending value, split into tokens.
	Location []string
	// Keyword is the schema keyword that failed, such as "pattern".
	Keyword string
	// Missing lists required properties absent at Location.
	Missing []string

	cause *jsonschema.ValidationError
}

func (e *SchemaError) Error() string {
	where := "/" + strings.Join(e.Location, "/")
	var msg string
	if len(e.Missing) > 0 {
		msg = fmt.Sprintf("at %s: missing %s", where, strings.Join(e.Missing, ", "))
	} else {
		msg = fmt.Sprintf("at %s: fails %q", where, e.Keyword)
	}
	if e.Source != "" {
		return fmt.Sprintf("%s invalid %s", e.Source, msg)
	}
	return "invalid " + msg
}

func (e *SchemaError) Unwrap() error {
	if e.cause == nil {
		return nil
	}
	return e.cause
}

// Field returns the property the violation is about: the first missing
// property when one is absent, otherwise the last location token.
func (e *SchemaError) Field() string {
	if len(e.Missing) > 0 {
		return e.Missing[0]
	}
	if len(e.Location) == 0 {
		return ""
	}
	return e.Location[len(e.Location)-1]
}

// Value validates an already decoded instance against an embedded schema.
func Value(instance any, schemaName string) error {
	schema, err := schemas.Compile(schemaName)
	if err != nil {
		return err
	}
	if err := schema.Validate(instance); err != nil {
		return toSchemaError(err)
	}
	return nil
}

// Bytes validates a JSONC document against an embedded schema.
func Bytes(data []byte, schemaName string) error {
	var instance any
	if err := json.Unmarshal(jsonc.Clean(data), &instance); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return Value(instance, schemaName)
}

// JSONC validates a JSONC file against an embedded schema.
func JSONC(path string, schemaName string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var instance any
	if err := json.Unmarshal(jsonc.Clean(data), &instance); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if err := Value(instance, schemaName); err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			se.Source = path
			return se
		}
		return err
	}
	return nil
}

func toSchemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	leaf := firstLeaf(ve)
	se := &SchemaError{
		Location: append([]string(nil), leaf.InstanceLocation...),
		cause:    ve,
	}
	if leaf.ErrorKind != nil {
		path := leaf.ErrorKind.KeywordPath()
		if len(path) > 0 {
			se.Keyword = path[len(path)-1]
		}
	}
	if r, ok := leaf.ErrorKind.(*kind.Required); ok {
		se.Missing = append([]string(nil), r.Missing...)
		se.Keyword = "required"
	}
	return se
}

// firstLeaf follows the first cause chain down to the most specific error.
func firstLeaf(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}
