// Package webapp defines the surface every bundle generated by webappgen
// implements, together with the lookup tables the generated code is built on.
//
// A host program depends only on this package. It receives a WebApp from a
// generated package's New function and queries it by request path:
//
//	app := ui.New()
//	if asset, ok := app.File("index.html"); ok {
//		w.Header().Set("Content-Type", asset.ContentType)
//		w.Write(asset.Bytes())
//	}
//
// All values reachable from a WebApp are immutable and may be shared by any
// number of goroutines without synchronization.
package webapp

import (
	"strings"
	"unsafe"
)

// WebApp is implemented by every generated bundle.
type WebApp interface {
	// File returns the asset stored under path. Matching is exact and
	// case-sensitive; callers pass already-normalized paths such as
	// "index.html" or "css/app.css".
	File(path string) (Asset, bool)
	// Info returns the application's metadata record.
	Info() Metadata
}

// Asset is one embedded file.
type Asset struct {
	Path        string
	ContentType string
	// Content holds the file bytes. Generated bundles assign string
	// constants here, so the data lives in the binary's read-only section.
	Content string
}

// Bytes returns a view of the asset content without copying it.
// The returned slice aliases read-only memory and must not be modified.
func (a Asset) Bytes() []byte {
	if a.Content == "" {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(a.Content), len(a.Content))
}

// Size returns the content length in bytes.
func (a Asset) Size() int {
	return len(a.Content)
}

// Reader returns a reader over the content. It implements io.ReadSeeker
// and io.ReaderAt, which is what http.ServeContent expects.
func (a Asset) Reader() *strings.Reader {
	return strings.NewReader(a.Content)
}

// Metadata describes the embedded application.
type Metadata struct {
	Name        string
	Version     string
	Author      string
	Description string
	IconURL     string
}
