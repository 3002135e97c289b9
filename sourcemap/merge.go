package sourcemap

import (
	"fmt"

	"github.com/liuxd6825/stylemap/sourcemap/vlq"
)

// Merge returns a map for the code of a immediately followed by the code of b.
// The mappings of b are moved past all the lines a covers and its source and
// name indices are renumbered to point after the ones of a. Neither argument
// is modified. A nil a results in a copy of b.
func Merge(a, b *Map) (*Map, error) {
	if b == nil {
		return nil, fmt.Errorf("sourcemap: can't merge a nil map")
	}
	if a == nil {
		return b.clone(), nil
	}

	first, err := vlq.DecodeMappings(a.Mappings)
	if err != nil {
		return nil, fmt.Errorf("sourcemap: decoding mappings of %q: %w", a.File, err)
	}
	second, err := vlq.DecodeMappings(b.Mappings)
	if err != nil {
		return nil, fmt.Errorf("sourcemap: decoding mappings of %q: %w", b.File, err)
	}

	span := a.Lines()
	if len(first) > span {
		// the map says it covers fewer lines than it has mappings for
		span = len(first)
	}
	lines := make([][]vlq.Segment, span, span+len(second))
	copy(lines, first)

	sourceOffset, nameOffset := len(a.Sources), len(a.Names)
	for _, line := range second {
		shifted := make([]vlq.Segment, len(line))
		for i, seg := range line {
			if seg.HasSource() {
				seg.Source += sourceOffset
			}
			if seg.HasName() {
				seg.Name += nameOffset
			}
			shifted[i] = seg
		}
		lines = append(lines, shifted)
	}

	bLines := b.Lines()
	if len(second) > bLines {
		bLines = len(second)
	}

	return &Map{
		Version:        Version,
		File:           a.File,
		Sources:        concat(a.Sources, b.sourcesWithRoot()),
		SourcesContent: concat(a.SourcesContent, b.SourcesContent),
		Names:          concat(a.Names, b.Names),
		Mappings:       vlq.EncodeMappings(lines),
		GeneratedLines: span + bLines,
		SourceRoot:     a.SourceRoot,
	}, nil
}

// Concat folds maps left to right with Merge.
func Concat(maps ...*Map) (*Map, error) {
	var (
		result *Map
		err    error
	)
	for _, m := range maps {
		if result, err = Merge(result, m); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (m *Map) clone() *Map {
	c := *m
	c.Version = Version
	c.Sources = concat(nil, m.Sources)
	c.SourcesContent = concat(nil, m.SourcesContent)
	c.Names = concat(nil, m.Names)
	if c.GeneratedLines == 0 {
		c.GeneratedLines = m.Lines()
	}
	return &c
}

// sourcesWithRoot resolves the sources of a map appended to another one, as
// only the sourceRoot of the first map survives.
func (m *Map) sourcesWithRoot() []string {
	if m.SourceRoot == "" {
		return m.Sources
	}
	sources := make([]string, len(m.Sources))
	for i, s := range m.Sources {
		sources[i] = joinSourceRoot(m.SourceRoot, s)
	}
	return sources
}

func joinSourceRoot(root, source string) string {
	if root[len(root)-1] == '/' {
		return root + source
	}
	return root + "/" + source
}

func concat(a, b []string) []string {
	res := make([]string, 0, len(a)+len(b))
	res = append(res, a...)
	return append(res, b...)
}
