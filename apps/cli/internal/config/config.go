package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/jsonc"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/metadata"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/validate"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/schemas"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/starter"
	"github.com/mehmetkoksal-w/webappgen/webapp"
)

const (
	FileName      = "webapp.jsonc"
	LayoutDir     = ".webappgen"
	SchemaVersion = "1.0.0"
	Kind          = "webappgen/config"
)

type Source struct {
	Dir    string `json:"dir"`
	Prefix string `json:"prefix,omitempty"`
}

type Output struct {
	File     string `json:"file,omitempty"`
	Package  string `json:"package,omitempty"`
	Type     string `json:"type,omitempty"`
	Strategy string `json:"strategy,omitempty"`
}

type Metadata struct {
	Name        string `json:"name,omitempty"`
	Version     string `json:"version,omitempty"`
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
	IconURL     string `json:"iconUrl,omitempty"`
}

// WebApp converts the record to the runtime metadata type.
func (m Metadata) WebApp() webapp.Metadata {
	return webapp.Metadata{
		Name:        m.Name,
		Version:     m.Version,
		Author:      m.Author,
		Description: m.Description,
		IconURL:     m.IconURL,
	}
}

type Config struct {
	SchemaVersion string            `json:"schemaVersion"`
	Kind          string            `json:"kind"`
	Sources       []Source          `json:"sources,omitempty"`
	Include       []string          `json:"include,omitempty"`
	Exclude       []string          `json:"exclude,omitempty"`
	ContentTypes  map[string]string `json:"contentTypes,omitempty"`
	Output        Output            `json:"output"`
	Manifest      bool              `json:"manifest,omitempty"`
	Metadata      Metadata          `json:"metadata"`

	// Path is the file the configuration was read from, empty when it was
	// assembled from flags.
	Path string `json:"-"`
	// BaseDir anchors relative source and output paths.
	BaseDir string `json:"-"`
}

// New returns an empty configuration rooted at baseDir.
func New(baseDir string) *Config {
	return &Config{SchemaVersion: SchemaVersion, Kind: Kind, BaseDir: baseDir}
}

// Load reads, validates and decodes a configuration file. Schema violations
// inside "metadata" are reported as *metadata.InvalidFieldError.
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := validate.JSONC(abs, schemas.Config); err != nil {
		return nil, classify(err)
	}
	cfg := &Config{}
	if err := jsonc.DecodeFile(abs, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", abs, err)
	}
	cfg.Path = abs
	cfg.BaseDir = filepath.Dir(abs)
	cfg.applyDefaults()
	return cfg, nil
}

// Find returns the configuration file in dir, or "" when there is none.
func Find(dir string) string {
	path := filepath.Join(dir, FileName)
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path
	}
	return ""
}

// Validate checks the configuration against the embedded schema. It is
// used for configurations assembled or modified by command-line flags.
func (c *Config) Validate() error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := validate.Bytes(b, schemas.Config); err != nil {
		return classify(err)
	}
	return nil
}

func classify(err error) error {
	var se *validate.SchemaError
	if errors.As(err, &se) && len(se.Location) > 0 && se.Location[0] == "metadata" {
		return metadata.FromSchemaError(se)
	}
	if errors.As(err, &se) && len(se.Location) == 0 && len(se.Missing) > 0 && se.Missing[0] == "metadata" {
		return &metadata.InvalidFieldError{Field: "metadata", Reason: "is required"}
	}
	return err
}

func (c *Config) applyDefaults() {
	if c.Output.Type == "" {
		c.Output.Type = "App"
	}
	if c.Output.Strategy == "" {
		c.Output.Strategy = "auto"
	}
}

// Resolve returns path anchored at BaseDir unless it is already absolute.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.BaseDir, path)
}

// OutputPath is the absolute path of the generated file.
func (c *Config) OutputPath() string {
	return c.Resolve(c.Output.File)
}

// ManifestPath is the build manifest database next to the configuration.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.BaseDir, LayoutDir, "manifest.db")
}

// EnsureLayout creates the .webappgen directory below root.
func EnsureLayout(root string) (string, error) {
	dir := filepath.Join(root, LayoutDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return dir, nil
}

// WriteTemplate renders a starter template to destPath. An existing file is
// kept unless allowOverwrite is set; the result reports whether it wrote.
func WriteTemplate(destPath, templateName string, replacements map[string]string, allowOverwrite bool) (bool, error) {
	if _, err := os.Stat(destPath); err == nil && !allowOverwrite {
		return false, nil
	}
	tpl, err := starter.Get(templateName)
	if err != nil {
		return false, fmt.Errorf("load template %s: %w", templateName, err)
	}
	contents := starter.Apply(tpl, replacements)
	if err := os.WriteFile(destPath, []byte(contents), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", destPath, err)
	}
	return true, nil
}

// CopySchemas exports the embedded schemas to .webappgen/schemas so editors
// can validate webapp.jsonc. The embedded copies stay canonical.
func CopySchemas(root string) error {
	schemaDir := filepath.Join(root, LayoutDir, "schemas")
	if err := os.MkdirAll(schemaDir, 0o755); err != nil {
		return fmt.Errorf("ensure schema dir: %w", err)
	}

	schemaMap, err := schemas.List()
	if err != nil {
		return err
	}
	for name, data := range schemaMap {
		dest := filepath.Join(schemaDir, fmt.Sprintf("%s.schema.json", name))
		if existing, err := os.ReadFile(dest); err == nil && string(existing) == string(data) {
			continue
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
	}
	return nil
}
