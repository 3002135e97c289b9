package pipeline

import (
	"errors"
	"path"
	"strings"
)

// ErrInvalidPattern is returned for naming patterns that can't be resolved.
var ErrInvalidPattern = errors.New("invalid naming pattern")

// FileType is the type of a file in the output set.
type FileType string

// the file types the pipeline produces
const (
	AssetFile FileType = "asset"
	ChunkFile FileType = "chunk"
)

// PreRendered is what a dynamic naming pattern gets to decide on a name.
type PreRendered struct {
	Name    string
	Type    FileType
	IsEntry bool
}

// NamingPattern is either a static template or a function returning one.
// Templates can contain the [name], [hash], [ext] and [extname] placeholders.
// The zero value is unset.
type NamingPattern struct {
	template string
	fn       func(PreRendered) string
	dynamic  bool
}

// Static returns a pattern that always resolves to template.
func Static(template string) NamingPattern {
	return NamingPattern{template: template}
}

// Dynamic returns a pattern that is resolved by calling fn.
func Dynamic(fn func(PreRendered) string) NamingPattern {
	return NamingPattern{fn: fn, dynamic: true}
}

// IsSet reports whether the pattern is not the zero value.
func (p NamingPattern) IsSet() bool {
	return p.dynamic || p.template != ""
}

// IsDynamic reports whether the pattern is function based.
func (p NamingPattern) IsDynamic() bool {
	return p.dynamic
}

// Resolve returns the template for the given file.
func (p NamingPattern) Resolve(info PreRendered) (string, error) {
	if !p.dynamic {
		if p.template == "" {
			return "", ErrInvalidPattern
		}
		return p.template, nil
	}
	if p.fn == nil {
		return "", errors.Join(ErrInvalidPattern, errors.New("dynamic pattern without a function"))
	}
	template := p.fn(info)
	if template == "" {
		return "", errors.Join(ErrInvalidPattern, errors.New("dynamic pattern returned an empty template for "+info.Name))
	}
	return template, nil
}

func (p NamingPattern) String() string {
	if p.dynamic {
		return "<dynamic>"
	}
	return p.template
}

// HasHash reports whether template has a [hash] placeholder.
func HasHash(template string) bool {
	return strings.Contains(template, "[hash]")
}

// Expand fills the placeholders of template for a file called name with the
// given hash. [name] is name without its extension, [ext] the extension
// without the dot and [extname] the extension with it.
func Expand(template, name, hash string) string {
	extname := path.Ext(name)
	return strings.NewReplacer(
		"[name]", strings.TrimSuffix(path.Base(name), extname),
		"[hash]", hash,
		"[extname]", extname,
		"[ext]", strings.TrimPrefix(extname, "."),
	).Replace(template)
}

// Stem returns the base name of p without its extension.
func Stem(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

// DefaultStyleExtensions are the suffixes of the modules treated as styles.
var DefaultStyleExtensions = []string{ //nolint:gochecknoglobals
	".css", ".less", ".sass", ".scss", ".styl", ".stylus", ".pcss", ".postcss", ".sss",
}

// HasExtension reports whether the module id, ignoring any query string,
// ends with one of exts.
func HasExtension(id string, exts []string) bool {
	if i := strings.IndexByte(id, '?'); i >= 0 {
		id = id[:i]
	}
	for _, ext := range exts {
		if ext != "" && strings.HasSuffix(id, ext) {
			return true
		}
	}
	return false
}
