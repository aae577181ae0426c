package synth

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"strconv"
	"text/template"

	"github.com/google/uuid"

	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/metadata"
	"github.com/mehmetkoksal-w/webappgen/webapp"
)

// Header starts every generated file. It matches the pattern go generate
// tooling uses to recognize machine-written sources.
const Header = "// Code generated by webappgen. DO NOT EDIT."

// ImportPath is the package generated code depends on.
const ImportPath = "github.com/mehmetkoksal-w/webappgen/webapp"

// bundleNamespace scopes bundle IDs to this generator.
var bundleNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/mehmetkoksal-w/webappgen/bundle"))

// BundleID derives a stable identifier from the table digest and the
// metadata record.
func BundleID(digest string, meta webapp.Metadata) uuid.UUID {
	name := fmt.Sprintf("%s\x00%s\x00%s\x00%s\x00%s\x00%s",
		digest, meta.Name, meta.Version, meta.Author, meta.Description, meta.IconURL)
	return uuid.NewSHA1(bundleNamespace, []byte(name))
}

// Options controls naming in the generated file.
type Options struct {
	// Package is the generated package name.
	Package string
	// Type is the exported bundle type, "App" by default.
	Type string
}

func (o Options) withDefaults() Options {
	if o.Type == "" {
		o.Type = "App"
	}
	return o
}

func (o Options) validate() error {
	if !token.IsIdentifier(o.Package) || o.Package == "_" {
		return fmt.Errorf("invalid package name %q", o.Package)
	}
	if !token.IsIdentifier(o.Type) || !token.IsExported(o.Type) {
		return fmt.Errorf("invalid type name %q: must be an exported identifier", o.Type)
	}
	switch o.Type {
	case "New", "BundleID":
		return fmt.Errorf("type name %q clashes with a generated identifier", o.Type)
	}
	return nil
}

type assetData struct {
	Const       string
	Path        string
	ContentType string
	Content     string
}

type fileData struct {
	Header   string
	Package  string
	Import   string
	Type     string
	BundleID string
	Count    int
	Strategy Strategy
	Consts   []assetData
	Stored   []assetData
	Seeds    string
	Info     string
}

var fileTemplate = template.Must(template.New("bundle").Parse(`{{.Header}}

package {{.Package}}

import "{{.Import}}"

// BundleID identifies the compiled asset set and metadata.
const BundleID = {{printf "%q" .BundleID}}
{{if .Consts}}
const (
{{- range .Consts}}
	{{.Const}} = {{.Content}}
{{- end}}
)
{{end}}
{{if eq .Strategy "hash" -}}
var webappTable = &webapp.PerfectHash{
	Seeds: []int32{ {{- .Seeds -}} },
	Assets: []webapp.Asset{
{{- range .Stored}}
		{Path: {{.Path}}, ContentType: {{.ContentType}}, Content: {{.Const}}},
{{- end}}
	},
}
{{- else -}}
var webappTable = webapp.Ladder{
{{- range .Stored}}
	{Path: {{.Path}}, ContentType: {{.ContentType}}, Content: {{.Const}}},
{{- end}}
}
{{- end}}

// {{.Type}} serves {{.Count}} compiled assets.
type {{.Type}} struct{}

var _ webapp.WebApp = {{.Type}}{}

// New returns the compiled web application.
func New() webapp.WebApp { return {{.Type}}{} }

// File returns the asset stored under path.
func ({{.Type}}) File(path string) (webapp.Asset, bool) {
	return webappTable.Find(path)
}

// Info returns the application metadata.
func ({{.Type}}) Info() webapp.Metadata {
	return {{.Info}}
}
`))

// Render emits the gofmt-formatted Go source of a bundle. Identical layouts,
// metadata and options always yield identical bytes.
func Render(l *Layout, meta webapp.Metadata, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	info, err := metadata.Emit(meta)
	if err != nil {
		return nil, err
	}

	data := fileData{
		Header:   Header,
		Package:  opts.Package,
		Import:   ImportPath,
		Type:     opts.Type,
		BundleID: BundleID(l.Digest, meta).String(),
		Count:    len(l.Entries),
		Strategy: l.Strategy,
		Info:     info,
	}

	consts := make([]assetData, len(l.Entries))
	for i, e := range l.Entries {
		consts[i] = assetData{
			Const:       fmt.Sprintf("webappAsset%d", i),
			Path:        strconv.Quote(e.Path),
			ContentType: strconv.Quote(e.ContentType),
			Content:     strconv.Quote(string(e.Data)),
		}
	}
	data.Consts = consts
	for _, idx := range l.Order {
		data.Stored = append(data.Stored, consts[idx])
	}
	if l.Strategy == Hash {
		var b bytes.Buffer
		for i, s := range l.Seeds {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.FormatInt(int64(s), 10))
		}
		data.Seeds = b.String()
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render bundle: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format bundle: %w", err)
	}
	return src, nil
}
