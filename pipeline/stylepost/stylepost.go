// Package stylepost implements the plugin that turns the style modules of a
// chunk into a single style asset.
package stylepost

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/liuxd6825/stylemap/pipeline"
)

// Plugin concatenates the style modules imported by a chunk, in import
// order, and emits them as "<chunk name>.css". It contributes the hash of
// that content to the chunk hash.
type Plugin struct {
	logger     logrus.FieldLogger
	extensions []string

	mu     sync.Mutex
	styles map[string]string
	chunks map[string][]byte
}

var (
	_ pipeline.Transformer        = &Plugin{}
	_ pipeline.ChunkRenderer      = &Plugin{}
	_ pipeline.ChunkHashAugmenter = &Plugin{}
)

// New returns a new Plugin. Without extensions the default style extensions are used.
func New(logger logrus.FieldLogger, extensions ...string) *Plugin {
	if len(extensions) == 0 {
		extensions = pipeline.DefaultStyleExtensions
	}
	return &Plugin{
		logger:     logger.WithField("plugin", pipeline.StylePostPlugin),
		extensions: extensions,
		styles:     make(map[string]string),
		chunks:     make(map[string][]byte),
	}
}

// Name implements pipeline.Plugin.
func (p *Plugin) Name() string {
	return pipeline.StylePostPlugin
}

// Transform records the final code of style modules.
func (p *Plugin) Transform(_ context.Context, _ pipeline.PluginContext, code, id string) (*pipeline.TransformResult, error) {
	if !pipeline.HasExtension(id, p.extensions) {
		return nil, nil //nolint:nilnil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.styles[id] = code
	return nil, nil //nolint:nilnil
}

// RenderChunk emits the style asset of the chunk.
func (p *Plugin) RenderChunk(ctx context.Context, pc pipeline.PluginContext, chunk *pipeline.RenderedChunk) error {
	css := p.chunkStyles(chunk)
	if css == nil {
		return nil
	}
	p.mu.Lock()
	p.chunks[chunk.Name] = css
	p.mu.Unlock()

	h, err := pc.EmitAsset(ctx, pipeline.EmittedAsset{Name: chunk.Name + ".css", Source: css})
	if err != nil {
		return err
	}
	if fileName, err := pc.FileName(h); err == nil {
		p.logger.WithFields(logrus.Fields{"chunk": chunk.Name, "fileName": fileName}).Debug("Emitted chunk styles")
	}
	return nil
}

// AugmentChunkHash returns the hash of the styles of the chunk.
func (p *Plugin) AugmentChunkHash(chunk *pipeline.RenderedChunk) string {
	p.mu.Lock()
	css, ok := p.chunks[chunk.Name]
	p.mu.Unlock()
	if !ok {
		return ""
	}
	return pipeline.ContentHash(css)
}

func (p *Plugin) chunkStyles(chunk *pipeline.RenderedChunk) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	var parts []string
	for _, id := range chunk.ModuleIDs {
		if code, ok := p.styles[id]; ok {
			parts = append(parts, code)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return []byte(strings.Join(parts, "\n"))
}
