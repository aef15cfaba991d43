package templates

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/zenibako/runsheet-golang/runsheet"
)

//go:embed default.yaml
var defaultTemplate []byte

// Format names the encoding of a template file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported template file %q: expected .yaml, .yml, .toml or .json", path)
}

// Parse decodes a template and checks every cue against the creation rules.
func Parse(data []byte, format Format) (Template, error) {
	var t Template
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&t); err != nil {
			return Template{}, fmt.Errorf("parse yaml template: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &t)
		if err != nil {
			return Template{}, fmt.Errorf("parse toml template: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Template{}, fmt.Errorf("parse toml template: unknown key %s", undecoded[0])
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&t); err != nil {
			return Template{}, fmt.Errorf("parse json template: %w", err)
		}
	default:
		return Template{}, fmt.Errorf("unknown template format %q", format)
	}

	if err := t.Validate(); err != nil {
		return Template{}, err
	}
	return t, nil
}

// Default returns the built-in template.
func Default() (Template, error) {
	return Parse(defaultTemplate, FormatYAML)
}

// LoadFile reads a template from disk.
func LoadFile(path string) (Template, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Template{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("read template: %w", err)
	}
	t, err := Parse(data, format)
	if err != nil {
		return Template{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Loader supplies template cues to Controller.SeedTemplate. An empty path
// selects the built-in template.
type Loader struct {
	path string
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the configured template file, or "" for the built-in one.
func (l *Loader) Path() string {
	return l.path
}

// Template loads the configured template.
func (l *Loader) Template() (Template, error) {
	if l.path == "" {
		return Default()
	}
	return LoadFile(l.path)
}

// LoadDefaultTemplate implements runsheet.TemplateLoader.
func (l *Loader) LoadDefaultTemplate(ctx context.Context, runID string) ([]runsheet.CueInput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := l.Template()
	if err != nil {
		return nil, err
	}
	log.Debug("Loaded template", "run", runID, "template", t.Name, "cues", len(t.Cues))
	return t.Inputs()
}

var _ runsheet.TemplateLoader = (*Loader)(nil)
