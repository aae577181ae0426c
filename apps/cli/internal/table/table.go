// Package table aggregates scanned assets into the closed, path-keyed set a
// bundle is generated from.
package table

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/fsutil"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/scan"
)

// ErrDuplicatePath matches every *DuplicatePathError.
var ErrDuplicatePath = errors.New("duplicate asset path")

// DuplicatePathError reports two source files that normalize to one
// lookup path.
type DuplicatePathError struct {
	Path    string
	SourceA string
	SourceB string
}

func (e *DuplicatePathError) Error() string {
	return fmt.Sprintf("duplicate asset path %q: %s and %s", e.Path, e.SourceA, e.SourceB)
}

func (e *DuplicatePathError) Is(target error) bool {
	return target == ErrDuplicatePath
}

// Entry is one asset of a built table.
type Entry struct {
	Path        string
	Source      string
	ContentType string
	Data        []byte
	// Digest is the hex SHA-256 of Data.
	Digest string
}

// Table is an immutable set of entries sorted by Path.
type Table struct {
	entries []Entry
	digest  string
}

// Build sorts assets by path and rejects duplicates. It never inspects
// content beyond hashing it.
func Build(assets []scan.Asset) (*Table, error) {
	sorted := make([]scan.Asset, len(assets))
	copy(sorted, assets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	entries := make([]Entry, 0, len(sorted))
	for i, a := range sorted {
		if i > 0 && sorted[i-1].Path == a.Path {
			return nil, &DuplicatePathError{Path: a.Path, SourceA: sorted[i-1].Source, SourceB: a.Source}
		}
		entries = append(entries, Entry{
			Path:        a.Path,
			Source:      a.Source,
			ContentType: a.ContentType,
			Data:        a.Data,
			Digest:      fsutil.HashBytes(a.Data),
		})
	}
	return &Table{entries: entries, digest: digestOf(entries)}, nil
}

// digestOf hashes length-prefixed (path, content type, digest) tuples, so
// it changes whenever anything observable in the bundle changes.
func digestOf(entries []Entry) string {
	h := sha256.New()
	var n [8]byte
	write := func(s string) {
		binary.BigEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	for _, e := range entries {
		write(e.Path)
		write(e.ContentType)
		write(e.Digest)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns the entries in path order. The slice is a copy; the
// entries' Data must not be modified.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Paths returns the sorted lookup keys.
func (t *Table) Paths() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Path
	}
	return out
}

// Lookup finds the entry stored under path.
func (t *Table) Lookup(path string) (Entry, bool) {
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].Path >= path })
	if i < len(t.entries) && t.entries[i].Path == path {
		return t.entries[i], true
	}
	return Entry{}, false
}

// Digest identifies the table content.
func (t *Table) Digest() string { return t.digest }

// Size returns the total number of content bytes.
func (t *Table) Size() int64 {
	var n int64
	for _, e := range t.entries {
		n += int64(len(e.Data))
	}
	return n
}
