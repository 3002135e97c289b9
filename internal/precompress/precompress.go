// Package precompress writes compressed copies of the text files of a
// bundle, so they can be served without compressing them on every request.
package precompress

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"github.com/liuxd6825/stylemap/lib/fsext"
	"github.com/liuxd6825/stylemap/pipeline"
)

// CompressionType is an encoding a file can be compressed with.
type CompressionType uint

const (
	// CompressionTypeGzip compresses through gzip
	CompressionTypeGzip CompressionType = iota
	// CompressionTypeZstd compresses through zstd
	CompressionTypeZstd
	// CompressionTypeBr compresses through brotli
	CompressionTypeBr
)

func (t CompressionType) String() string {
	switch t {
	case CompressionTypeGzip:
		return "gzip"
	case CompressionTypeZstd:
		return "zstd"
	case CompressionTypeBr:
		return "br"
	default:
		return fmt.Sprintf("CompressionType(%d)", uint(t))
	}
}

// Extension is appended to the name of a compressed copy.
func (t CompressionType) Extension() string {
	switch t {
	case CompressionTypeGzip:
		return ".gz"
	case CompressionTypeZstd:
		return ".zst"
	case CompressionTypeBr:
		return ".br"
	default:
		return ""
	}
}

// ParseTypes parses a list of compression names. Duplicates are dropped.
func ParseTypes(names []string) ([]CompressionType, error) {
	var types []CompressionType
	seen := make(map[CompressionType]bool)
	for _, name := range names {
		var t CompressionType
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "gzip", "gz":
			t = CompressionTypeGzip
		case "zstd", "zst":
			t = CompressionTypeZstd
		case "br", "brotli":
			t = CompressionTypeBr
		default:
			return nil, fmt.Errorf("unknown compression '%s', use gzip, zstd or br", name)
		}
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	return types, nil
}

// Compress returns data compressed with t.
func Compress(t CompressionType, data []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	var w io.WriteCloser
	switch t {
	case CompressionTypeGzip:
		gw, err := gzip.NewWriterLevel(buf, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		w = gw
	case CompressionTypeZstd:
		zw, err := zstd.NewWriter(buf, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return nil, err
		}
		w = zw
	case CompressionTypeBr:
		w = brotli.NewWriterLevel(buf, brotli.BestCompression)
	default:
		return nil, fmt.Errorf("unknown compressionType %s", t)
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DefaultExtensions are the files that get compressed copies by default.
var DefaultExtensions = []string{".js", ".mjs", ".css", ".map", ".json", ".svg"} //nolint:gochecknoglobals

// Options are the options of Write.
type Options struct {
	Types []CompressionType
	// MinSize is the size below which files aren't compressed.
	MinSize    int
	Extensions []string
}

// Write writes a compressed copy of every matching file of bundle under dir,
// for every compression type. It returns how many copies were written.
func Write(fs fsext.Fs, dir string, bundle *pipeline.Bundle, opts Options, logger logrus.FieldLogger) (int, error) {
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	written := 0
	for _, f := range bundle.Files() {
		if len(f.Source) < opts.MinSize || !pipeline.HasExtension(f.FileName, opts.Extensions) {
			continue
		}
		for _, t := range opts.Types {
			data, err := Compress(t, f.Source)
			if err != nil {
				return written, fmt.Errorf("compressing %s with %s: %w", f.FileName, t, err)
			}
			fileName := f.FileName + t.Extension()
			target := filepath.Join(dir, filepath.FromSlash(fileName))
			if err := fsext.WriteFile(fs, target, data, 0o644); err != nil {
				return written, fmt.Errorf("writing %s: %w", fileName, err)
			}
			written++
			logger.WithFields(logrus.Fields{
				"file": path.Base(fileName), "size": len(data), "original": len(f.Source),
			}).Debug("Wrote compressed copy")
		}
	}
	return written, nil
}
