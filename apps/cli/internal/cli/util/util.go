// Package util provides utility functions for the CLI.
package util

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/index"
)

// MustAbs returns the absolute path, or the original path if resolution fails.
func MustAbs(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

// AbsOrEmpty is MustAbs that keeps "" empty, for optional path flags.
func AbsOrEmpty(p string) string {
	if p == "" {
		return ""
	}
	return MustAbs(p)
}

// PrintChanges writes one line per asset change, at most limit lines
// followed by a count of the rest. A limit of zero prints everything.
func PrintChanges(w io.Writer, changes []index.Change, limit int) {
	preview := changes
	if limit > 0 && len(preview) > limit {
		preview = preview[:limit]
	}
	for _, c := range preview {
		fmt.Fprintf(w, "  %s %s\n", changeMark(c.Kind), c.Path)
	}
	if len(changes) > len(preview) {
		fmt.Fprintf(w, "  ... and %d more\n", len(changes)-len(preview))
	}
}

func changeMark(k index.ChangeKind) string {
	switch k {
	case index.Added:
		return "+"
	case index.Removed:
		return "-"
	default:
		return "~"
	}
}
