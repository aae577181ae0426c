// Package metadata validates the application record compiled into a bundle
// and renders it as a Go composite literal.
package metadata

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/validate"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/schemas"
	"github.com/mehmetkoksal-w/webappgen/webapp"
)

// ErrInvalidField matches every *InvalidFieldError.
var ErrInvalidField = errors.New("invalid metadata field")

// InvalidFieldError reports a malformed metadata value. Field uses the
// configuration key, e.g. "iconUrl".
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid metadata field %q: %s", e.Field, e.Reason)
}

func (e *InvalidFieldError) Is(target error) bool {
	return target == ErrInvalidField
}

type field struct {
	key   string
	value string
}

func fields(m webapp.Metadata) []field {
	return []field{
		{"name", m.Name},
		{"version", m.Version},
		{"author", m.Author},
		{"description", m.Description},
		{"iconUrl", m.IconURL},
	}
}

// Validate checks m against the embedded metadata schema. Name and version
// are required; no value may hold invalid UTF-8 or control characters, and
// the icon reference may not contain whitespace.
func Validate(m webapp.Metadata) error {
	instance := make(map[string]any, 5)
	for _, f := range fields(m) {
		if !utf8.ValidString(f.value) {
			return &InvalidFieldError{Field: f.key, Reason: "not valid UTF-8"}
		}
		instance[f.key] = f.value
	}

	err := validate.Value(instance, schemas.Metadata)
	if err == nil {
		return nil
	}
	var se *validate.SchemaError
	if !errors.As(err, &se) {
		return fmt.Errorf("validate metadata: %w", err)
	}
	return FromSchemaError(se)
}

// FromSchemaError converts a violation located in a metadata object into an
// InvalidFieldError.
func FromSchemaError(se *validate.SchemaError) *InvalidFieldError {
	field := se.Field()
	if field == "" {
		field = "metadata"
	}
	return &InvalidFieldError{Field: field, Reason: reason(field, se)}
}

func reason(field string, se *validate.SchemaError) string {
	switch se.Keyword {
	case "required":
		return "is required"
	case "minLength":
		return "must not be empty"
	case "maxLength":
		return "is too long"
	case "pattern":
		if field == "iconUrl" {
			return "must not contain whitespace or control characters"
		}
		return "must not contain control characters"
	case "type":
		return "must be a string"
	case "additionalProperties", "false":
		return "unknown field"
	default:
		return fmt.Sprintf("violates %q", se.Keyword)
	}
}

// Emit validates m and returns its Go composite literal, qualified with the
// webapp package name. Empty optional fields are omitted.
func Emit(m webapp.Metadata) (string, error) {
	if err := Validate(m); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("webapp.Metadata{\n")
	for _, f := range []struct {
		goName string
		value  string
	}{
		{"Name", m.Name},
		{"Version", m.Version},
		{"Author", m.Author},
		{"Description", m.Description},
		{"IconURL", m.IconURL},
	} {
		if f.value == "" {
			continue
		}
		fmt.Fprintf(&b, "\t%s: %s,\n", f.goName, strconv.Quote(f.value))
	}
	b.WriteString("}")
	return b.String(), nil
}
