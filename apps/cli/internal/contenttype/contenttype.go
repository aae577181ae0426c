// Package contenttype maps asset file extensions to MIME types.
//
// The table is fixed so generated bundles are identical on every machine;
// the system MIME database is never consulted.
package contenttype

import (
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Func infers the content type of an asset from its extension (with the
// leading dot, any case) and, when needed, its bytes.
type Func func(ext string, data []byte) string

// Fallback is returned when nothing better is known.
const Fallback = "application/octet-stream"

var builtin = map[string]string{
	".html":        "text/html",
	".htm":         "text/html",
	".css":         "text/css",
	".js":          "text/javascript",
	".mjs":         "text/javascript",
	".cjs":         "text/javascript",
	".json":        "application/json",
	".map":         "application/json",
	".webmanifest": "application/manifest+json",
	".xml":         "application/xml",
	".txt":         "text/plain",
	".md":          "text/markdown",
	".csv":         "text/csv",
	".svg":         "image/svg+xml",
	".png":         "image/png",
	".jpg":         "image/jpeg",
	".jpeg":        "image/jpeg",
	".gif":         "image/gif",
	".webp":        "image/webp",
	".avif":        "image/avif",
	".ico":         "image/x-icon",
	".bmp":         "image/bmp",
	".woff":        "font/woff",
	".woff2":       "font/woff2",
	".ttf":         "font/ttf",
	".otf":         "font/otf",
	".eot":         "application/vnd.ms-fontobject",
	".wasm":        "application/wasm",
	".pdf":         "application/pdf",
	".mp4":         "video/mp4",
	".webm":        "video/webm",
	".mp3":         "audio/mpeg",
	".ogg":         "audio/ogg",
	".wav":         "audio/wav",
	".zip":         "application/zip",
	".gz":          "application/gzip",
}

// Lookup returns the built-in type for ext.
func Lookup(ext string) (string, bool) {
	ct, ok := builtin[strings.ToLower(ext)]
	return ct, ok
}

// Default uses the built-in table and sniffs the content of unknown
// extensions. Sniffed text types lose their parameters so the result does
// not depend on the detector's charset guess.
func Default(ext string, data []byte) string {
	if ct, ok := Lookup(ext); ok {
		return ct
	}
	if len(data) == 0 {
		return Fallback
	}
	ct := mimetype.Detect(data).String()
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "" {
		return Fallback
	}
	return ct
}

// WithOverrides consults overrides before base. Keys are extensions with
// the leading dot and are matched case-insensitively.
func WithOverrides(overrides map[string]string, base Func) Func {
	if base == nil {
		base = Default
	}
	if len(overrides) == 0 {
		return base
	}
	norm := make(map[string]string, len(overrides))
	for ext, ct := range overrides {
		norm[strings.ToLower(ext)] = ct
	}
	return func(ext string, data []byte) string {
		if ct, ok := norm[strings.ToLower(ext)]; ok {
			return ct
		}
		return base(ext, data)
	}
}

// Of applies fn to the extension of the slash-separated name.
func Of(fn Func, name string, data []byte) string {
	if fn == nil {
		fn = Default
	}
	return fn(path.Ext(name), data)
}
