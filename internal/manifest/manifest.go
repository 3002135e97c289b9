// Package manifest loads the build manifest of the stylemap command: which
// entries to build from which modules, how to name the output and how the
// style source maps are configured.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/liuxd6825/stylemap/lib/fsext"
	"github.com/liuxd6825/stylemap/pipeline"
)

// Format is the encoding of a manifest file.
type Format string

// the supported manifest formats
const (
	YAML Format = "yaml"
	TOML Format = "toml"
	JSON Format = "json"
)

// DefaultFileNames are tried, in order, when no manifest is given explicitly.
var DefaultFileNames = []string{ //nolint:gochecknoglobals
	"stylemap.yaml", "stylemap.yml", "stylemap.toml", "stylemap.json",
}

// Entry is a declared entry point.
type Entry struct {
	Path    string   `json:"path" yaml:"path" toml:"path"`
	Alias   string   `json:"alias,omitempty" yaml:"alias,omitempty" toml:"alias,omitempty"`
	Imports []string `json:"imports,omitempty" yaml:"imports,omitempty" toml:"imports,omitempty"`
}

// Output holds the naming templates of the output files.
type Output struct {
	Dir            string `json:"dir,omitempty" yaml:"dir,omitempty" toml:"dir,omitempty"`
	EntryFileNames string `json:"entryFileNames,omitempty" yaml:"entryFileNames,omitempty" toml:"entryFileNames,omitempty"`
	ChunkFileNames string `json:"chunkFileNames,omitempty" yaml:"chunkFileNames,omitempty" toml:"chunkFileNames,omitempty"`
	AssetFileNames string `json:"assetFileNames,omitempty" yaml:"assetFileNames,omitempty" toml:"assetFileNames,omitempty"`
}

// Manifest describes a single build.
type Manifest struct {
	// Root is the directory module ids are relative to. Relative roots are
	// relative to the manifest itself.
	Root    string  `json:"root,omitempty" yaml:"root,omitempty" toml:"root,omitempty"`
	Entries []Entry `json:"entries" yaml:"entries" toml:"entries"`
	Output  Output  `json:"output" yaml:"output" toml:"output"`

	// Sourcemaps is the JSON encoded configuration of the style source maps,
	// whatever format the manifest was written in.
	Sourcemaps json.RawMessage `json:"sourcemaps,omitempty" yaml:"-" toml:"-"`

	// Dir is the directory of the manifest file.
	Dir string `json:"-" yaml:"-" toml:"-"`
}

// FormatOf returns the format of a manifest file based on its extension.
func FormatOf(fileName string) (Format, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	case ".json":
		return JSON, nil
	default:
		return "", fmt.Errorf("unsupported manifest format %q, use a .yaml, .toml or .json file", filepath.Ext(fileName))
	}
}

// Find returns the first of DefaultFileNames that exists in dir.
func Find(fs fsext.Fs, dir string) (string, error) {
	for _, name := range DefaultFileNames {
		candidate := filepath.Join(dir, name)
		ok, err := fsext.Exists(fs, candidate)
		if err != nil {
			return "", err
		}
		if ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no manifest found in %s, expected one of %s", dir, strings.Join(DefaultFileNames, ", "))
}

// Load reads and validates the manifest at fileName.
func Load(fs fsext.Fs, fileName string) (*Manifest, error) {
	format, err := FormatOf(fileName)
	if err != nil {
		return nil, err
	}
	data, err := fsext.ReadFile(fs, fileName)
	if err != nil {
		return nil, fmt.Errorf("reading the manifest: %w", err)
	}
	m, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	m.Dir = filepath.Dir(fileName)
	return m, nil
}

// Parse decodes a manifest in the given format and validates it.
func Parse(data []byte, format Format) (*Manifest, error) {
	m := new(Manifest)
	var sourcemaps map[string]interface{}
	switch format {
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(m); err != nil {
			return nil, fmt.Errorf("decoding JSON: %w", err)
		}
	case YAML:
		var raw struct {
			Manifest   `yaml:",inline"`
			Sourcemaps map[string]interface{} `yaml:"sourcemaps"`
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decoding YAML: %w", err)
		}
		*m, sourcemaps = raw.Manifest, raw.Sourcemaps
	case TOML:
		var raw struct {
			Manifest
			Sourcemaps map[string]interface{} `toml:"sourcemaps"`
		}
		md, err := toml.Decode(string(data), &raw)
		if err != nil {
			return nil, fmt.Errorf("decoding TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("decoding TOML: unknown key %s", undecoded[0])
		}
		*m, sourcemaps = raw.Manifest, raw.Sourcemaps
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}

	if sourcemaps != nil {
		b, err := json.Marshal(sourcemaps)
		if err != nil {
			return nil, fmt.Errorf("encoding the sourcemaps section: %w", err)
		}
		m.Sourcemaps = b
	}
	return m, m.Validate()
}

// Validate checks that the manifest describes a build.
func (m *Manifest) Validate() error {
	if len(m.Entries) == 0 {
		return fmt.Errorf("the manifest has no entries")
	}
	for i, e := range m.Entries {
		if e.Path == "" {
			return fmt.Errorf("entry %d has no path", i)
		}
		for _, id := range append([]string{e.Path}, e.Imports...) {
			if path.IsAbs(id) || strings.HasPrefix(path.Clean(id), "../") {
				return fmt.Errorf("module %q of entry %d must be relative to the root", id, i)
			}
		}
	}
	return nil
}

// Input returns the entries as a pipeline input.
func (m *Manifest) Input() pipeline.Input {
	in := make(pipeline.Input, len(m.Entries))
	for i, e := range m.Entries {
		in[i] = pipeline.InputEntry{
			Alias:   e.Alias,
			Path:    e.Path,
			Imports: append([]string(nil), e.Imports...),
		}
	}
	return in
}

// OutputOptions returns the naming templates as pipeline output options.
// Templates the manifest doesn't set are left unset.
func (m *Manifest) OutputOptions() pipeline.OutputOptions {
	var opts pipeline.OutputOptions
	if m.Output.EntryFileNames != "" {
		opts.EntryFileNames = pipeline.Static(m.Output.EntryFileNames)
	}
	if m.Output.ChunkFileNames != "" {
		opts.ChunkFileNames = pipeline.Static(m.Output.ChunkFileNames)
	}
	if m.Output.AssetFileNames != "" {
		opts.AssetFileNames = pipeline.Static(m.Output.AssetFileNames)
	}
	return opts
}

// RootDir returns the directory module ids are resolved against.
func (m *Manifest) RootDir() string {
	if filepath.IsAbs(m.Root) {
		return m.Root
	}
	return filepath.Join(m.Dir, m.Root)
}

// OutDir returns the directory the output is written to, "dist" next to the
// manifest by default.
func (m *Manifest) OutDir() string {
	dir := m.Output.Dir
	if dir == "" {
		dir = "dist"
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(m.Dir, dir)
}
