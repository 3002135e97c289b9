// Package sourcemap contains the version 3 source map model used by stylemap
// together with the helpers to synthesize and concatenate maps.
package sourcemap

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	gosourcemap "github.com/go-sourcemap/sourcemap"
	"github.com/tidwall/gjson"
)

// Version is the only source map revision that is produced and accepted.
const Version = 3

// Map is a single (non-indexed) version 3 source map.
type Map struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	SourceRoot     string   `json:"sourceRoot,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`

	// GeneratedLines is the number of generated lines the map covers. It can
	// be bigger than the number of lines in Mappings when the tail of the
	// generated code has no mappings. Zero means it is derived from Mappings.
	GeneratedLines int `json:"-"`
}

// Parse validates and decodes a JSON encoded source map.
func Parse(b []byte) (*Map, error) {
	// the same validation the js compiler does before handing a map over to the parser
	if _, err := gosourcemap.Parse("", b); err != nil {
		return nil, err
	}
	m := new(Map)
	if err := json.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("sourcemap: %w", err)
	}
	if m.Version != Version {
		return nil, fmt.Errorf("sourcemap: unsupported version %d", m.Version)
	}
	m.normalize()
	return m, nil
}

func (m *Map) normalize() {
	if m.Names == nil {
		m.Names = []string{}
	}
	if m.Sources == nil {
		m.Sources = []string{}
	}
	switch {
	case len(m.SourcesContent) < len(m.Sources):
		m.SourcesContent = append(m.SourcesContent, make([]string, len(m.Sources)-len(m.SourcesContent))...)
	case len(m.SourcesContent) > len(m.Sources):
		m.SourcesContent = m.SourcesContent[:len(m.Sources)]
	}
}

// IsEmpty reports whether the map carries no meaningful mapping data.
func (m *Map) IsEmpty() bool {
	return m == nil || m.Mappings == "" || len(m.Sources) == 0
}

// IsEmptyRaw is IsEmpty for a map that hasn't been decoded yet.
func IsEmptyRaw(b []byte) bool {
	if len(b) == 0 || !gjson.ValidBytes(b) {
		return true
	}
	res := gjson.GetManyBytes(b, "mappings", "sources.#")
	return res[0].String() == "" || res[1].Int() == 0
}

// Lines returns the number of generated lines the map covers.
func (m *Map) Lines() int {
	if m.GeneratedLines > 0 {
		return m.GeneratedLines
	}
	if m.Mappings == "" {
		return 0
	}
	return strings.Count(m.Mappings, ";") + 1
}

// Bytes returns the JSON encoding of the map.
func (m *Map) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// Identity returns a map in which every line of code maps to the start of
// the same line in moduleID.
func Identity(code, moduleID string) *Map {
	lines := strings.Count(code, "\n") + 1

	var b strings.Builder
	b.Grow(lines * 5)
	b.WriteString("AAAA")
	for i := 1; i < lines; i++ {
		b.WriteString(";AACA")
	}

	return &Map{
		Version:        Version,
		File:           path.Base(moduleID),
		Sources:        []string{moduleID},
		SourcesContent: []string{code},
		Names:          []string{},
		Mappings:       b.String(),
		GeneratedLines: lines,
	}
}
