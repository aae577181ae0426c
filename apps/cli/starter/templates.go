// Package starter provides embedded templates for webappgen init.
package starter

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

// ConfigTemplate is the starter configuration file.
const ConfigTemplate = "webapp.jsonc"

//go:embed webapp.jsonc
var templateFS embed.FS

// Get returns the template content for a relative path within starter/.
func Get(name string) (string, error) {
	path := strings.TrimPrefix(name, "/")
	data, err := templateFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Apply replaces placeholder keys with provided values in the template
// content. Keys are applied in sorted order so the result never depends on
// map iteration.
func Apply(template string, replacements map[string]string) string {
	keys := make([]string, 0, len(replacements))
	for k := range replacements {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := template
	for _, k := range keys {
		out = strings.ReplaceAll(out, fmt.Sprintf("{{%s}}", k), replacements[k])
	}
	return out
}
