package flags

import (
	"fmt"
	"go/token"
	"time"
)

// ValidateStrategy validates that strategy is one of: auto, ladder, hash.
func ValidateStrategy(v string) error {
	switch v {
	case "", "auto", "ladder", "hash":
		return nil
	}
	return fmt.Errorf("strategy must be auto, ladder, or hash, got %q", v)
}

// ValidatePackageName validates that v can be used as a package clause.
func ValidatePackageName(v string) error {
	if v == "" || v == "_" || !token.IsIdentifier(v) {
		return fmt.Errorf("package must be a Go identifier, got %q", v)
	}
	return nil
}

// ValidateTypeName validates that v is an exported Go identifier.
func ValidateTypeName(v string) error {
	if !token.IsIdentifier(v) || !token.IsExported(v) {
		return fmt.Errorf("type must be an exported Go identifier, got %q", v)
	}
	return nil
}

// ValidateDebounce validates that the watch debounce is positive.
func ValidateDebounce(v time.Duration) error {
	if v <= 0 {
		return fmt.Errorf("debounce must be positive, got %s", v)
	}
	return nil
}
