// Package schemas embeds the JSON Schemas webappgen validates its inputs with.
package schemas

import (
	"bytes"
	"embed"
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed *.schema.json
var schemaFS embed.FS

const (
	Config   = "config"
	Metadata = "metadata"
)

// Names lists every embedded schema. Metadata comes first because Config
// references it.
var Names = []string{Metadata, Config}

var (
	compileOnce sync.Once
	compiler    *jsonschema.Compiler
	compileErr  error

	cacheMu sync.Mutex
	cache   = map[string]*jsonschema.Schema{}
)

func getCompiler() (*jsonschema.Compiler, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		for _, name := range Names {
			data, err := schemaFS.ReadFile(schemaPath(name))
			if err != nil {
				compileErr = fmt.Errorf("read schema %s: %w", name, err)
				return
			}
			doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
			if err != nil {
				compileErr = fmt.Errorf("decode schema %s: %w", name, err)
				return
			}
			if err := c.AddResource(schemaURL(name), doc); err != nil {
				compileErr = fmt.Errorf("register schema %s: %w", name, err)
				return
			}
		}
		compiler = c
	})
	return compiler, compileErr
}

func schemaPath(name string) string {
	return fmt.Sprintf("%s.schema.json", name)
}

func schemaURL(name string) string {
	return fmt.Sprintf("mem://schemas/%s.schema.json", name)
}

// Compile returns the compiled schema for name. Compiled schemas are cached
// and safe for concurrent use.
func Compile(name string) (*jsonschema.Schema, error) {
	c, err := getCompiler()
	if err != nil {
		return nil, err
	}
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if s, ok := cache[name]; ok {
		return s, nil
	}
	s, err := c.Compile(schemaURL(name))
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	cache[name] = s
	return s, nil
}

// Get returns the raw schema document.
func Get(name string) ([]byte, error) {
	b, err := schemaFS.ReadFile(schemaPath(name))
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", name, err)
	}
	return b, nil
}

// List returns every embedded schema keyed by name.
func List() (map[string][]byte, error) {
	out := make(map[string][]byte, len(Names))
	for _, name := range Names {
		data, err := Get(name)
		if err != nil {
			return nil, err
		}
		out[name] = data
	}
	return out, nil
}
