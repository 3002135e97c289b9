package vlq

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSegmentFields is returned for segments that don't have 1, 4 or 5 fields.
var ErrSegmentFields = errors.New("vlq: segment must have 1, 4 or 5 fields")

// Segment is a single decoded mapping with absolute (not delta encoded)
// values. Only the first Fields values are meaningful: a segment with one
// field maps a generated column to nothing, four fields add the original
// position and five fields add a name.
type Segment struct {
	GeneratedColumn int
	Source          int
	OriginalLine    int
	OriginalColumn  int
	Name            int
	Fields          int
}

// HasSource reports whether the segment points to an original position.
func (s Segment) HasSource() bool { return s.Fields >= 4 }

// HasName reports whether the segment references a name.
func (s Segment) HasName() bool { return s.Fields == 5 }

// DecodeMappings decodes a mappings string into one slice of segments per
// generated line. An empty string decodes to zero lines.
func DecodeMappings(mappings string) ([][]Segment, error) {
	if mappings == "" {
		return nil, nil
	}
	var (
		lines = make([][]Segment, 0, strings.Count(mappings, ";")+1)
		prev  Segment
	)
	for lineNo, line := range strings.Split(mappings, ";") {
		var segments []Segment
		prev.GeneratedColumn = 0
		for _, field := range strings.Split(line, ",") {
			if field == "" {
				continue
			}
			seg, err := decodeSegment(field, prev)
			if err != nil {
				return nil, fmt.Errorf("line %d: segment %q: %w", lineNo, field, err)
			}
			segments = append(segments, seg)
			prev.GeneratedColumn = seg.GeneratedColumn
			if seg.HasSource() {
				prev.Source, prev.OriginalLine, prev.OriginalColumn = seg.Source, seg.OriginalLine, seg.OriginalColumn
			}
			if seg.HasName() {
				prev.Name = seg.Name
			}
		}
		lines = append(lines, segments)
	}
	return lines, nil
}

func decodeSegment(field string, prev Segment) (Segment, error) {
	var values [5]int
	count := 0
	for len(field) > 0 {
		if count == len(values) {
			return Segment{}, ErrSegmentFields
		}
		v, n, err := Decode(field)
		if err != nil {
			return Segment{}, err
		}
		values[count] = v
		count++
		field = field[n:]
	}
	if count != 1 && count != 4 && count != 5 {
		return Segment{}, ErrSegmentFields
	}

	seg := Segment{Fields: count, GeneratedColumn: prev.GeneratedColumn + values[0]}
	if count >= 4 {
		seg.Source = prev.Source + values[1]
		seg.OriginalLine = prev.OriginalLine + values[2]
		seg.OriginalColumn = prev.OriginalColumn + values[3]
	}
	if count == 5 {
		seg.Name = prev.Name + values[4]
	}
	return seg, nil
}

// EncodeMappings is the inverse of DecodeMappings.
func EncodeMappings(lines [][]Segment) string {
	var (
		buf  []byte
		prev Segment
	)
	for i, line := range lines {
		if i > 0 {
			buf = append(buf, ';')
		}
		prev.GeneratedColumn = 0
		for j, seg := range line {
			if j > 0 {
				buf = append(buf, ',')
			}
			buf = AppendEncode(buf, seg.GeneratedColumn-prev.GeneratedColumn)
			prev.GeneratedColumn = seg.GeneratedColumn
			if !seg.HasSource() {
				continue
			}
			buf = AppendEncode(buf, seg.Source-prev.Source)
			buf = AppendEncode(buf, seg.OriginalLine-prev.OriginalLine)
			buf = AppendEncode(buf, seg.OriginalColumn-prev.OriginalColumn)
			prev.Source, prev.OriginalLine, prev.OriginalColumn = seg.Source, seg.OriginalLine, seg.OriginalColumn
			if seg.HasName() {
				buf = AppendEncode(buf, seg.Name-prev.Name)
				prev.Name = seg.Name
			}
		}
	}
	return string(buf)
}
