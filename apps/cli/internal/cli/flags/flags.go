// Package flags provides common flag types and validators for the CLI.
package flags

import (
	"fmt"
	"strings"
)

// BoolFlag is a boolean flag that tracks whether it was explicitly set, so
// "--manifest=false" can override a configuration file that enables it.
type BoolFlag struct {
	Value  bool
	WasSet bool
}

// Set parses and sets the boolean value.
func (b *BoolFlag) Set(s string) error {
	switch strings.ToLower(s) {
	case "", "true", "1":
		b.Value = true
	case "false", "0":
		b.Value = false
	default:
		return fmt.Errorf("invalid boolean %q", s)
	}
	b.WasSet = true
	return nil
}

func (b *BoolFlag) String() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// IsBoolFlag lets the flag be given without a value.
func (b *BoolFlag) IsBoolFlag() bool { return true }

// StringList collects a repeatable string flag. Each occurrence may also
// hold a comma-separated list.
type StringList []string

func (l *StringList) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

func (l *StringList) String() string {
	return strings.Join(*l, ",")
}
