// Package jsonc reads JSON-with-comments configuration files.
package jsonc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	jsonc "github.com/muhammadmuzzammil1998/jsonc"
)

// DecodeFile loads a JSONC file into dest.
func DecodeFile(path string, dest any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := Decode(b, dest); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Decode strips comments from data and decodes it into dest, rejecting
// keys dest does not declare.
func Decode(data []byte, dest any) error {
	dec := json.NewDecoder(bytes.NewReader(Clean(data)))
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

// Clean strips comments and trailing commas from JSONC input.
func Clean(data []byte) []byte {
	return jsonc.ToJSON(data)
}
