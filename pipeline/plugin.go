// Package pipeline describes the build pipeline stylemap plugs into: the
// lifecycle hooks a plugin can implement, the context handed to them and the
// output set they work on. It also contains Build, a small in-memory host
// that drives those hooks for a set of modules.
package pipeline

import (
	"context"
)

// StylePostPlugin is the name of the plugin that turns the style modules of
// a chunk into a style asset and contributes their hash to the chunk hash.
const StylePostPlugin = "builtin:style-post"

// Plugin is the minimum a pipeline plugin has to implement. Everything else
// is opt-in through the hook interfaces below.
type Plugin interface {
	Name() string
}

// BuildStartInput is what plugins get when the build starts.
type BuildStartInput struct {
	Input   Input
	Plugins []Plugin

	// ChunkHash holds the chunk hash contributions of all installed plugins
	// and allows them to be decorated.
	ChunkHash *ChunkHashHooks
}

// BuildStarter is a plugin that is notified when a build starts.
type BuildStarter interface {
	Plugin
	BuildStart(ctx context.Context, in *BuildStartInput) error
}

// OutputOptionsHook is a plugin that can inspect and replace the output
// options before any output is generated.
type OutputOptionsHook interface {
	Plugin
	OutputOptions(opts OutputOptions) (OutputOptions, error)
}

// TransformResult is the result of a transform. A nil result leaves the
// module untouched.
type TransformResult struct {
	Code string
	// Map is the JSON encoded source map of the transformation, if any.
	Map []byte
}

// Transformer is a plugin that transforms single modules.
type Transformer interface {
	Plugin
	Transform(ctx context.Context, pc PluginContext, code, id string) (*TransformResult, error)
}

// ChunkRenderer is a plugin that is notified for every chunk once its
// content is final, but before its file name is.
type ChunkRenderer interface {
	Plugin
	RenderChunk(ctx context.Context, pc PluginContext, chunk *RenderedChunk) error
}

// ChunkHashAugmenter is a plugin that adds to the hash of a chunk. Only
// called for chunks whose file name contains a hash.
type ChunkHashAugmenter interface {
	Plugin
	AugmentChunkHash(chunk *RenderedChunk) string
}

// BundleGenerator is a plugin that can modify the final output set.
type BundleGenerator interface {
	Plugin
	GenerateBundle(ctx context.Context, pc PluginContext, opts OutputOptions, bundle *Bundle) error
}

// Handle references an emitted asset before its final name is known.
type Handle string

// EmittedAsset describes an asset emitted by a plugin. When FileName is set
// it is used verbatim, otherwise the name is derived from Name and the
// AssetFileNames pattern.
type EmittedAsset struct {
	Name     string
	FileName string
	Source   []byte
}

// PluginContext is what the host exposes to plugin hooks.
type PluginContext interface {
	// EmitAsset adds an asset to the output set.
	EmitAsset(ctx context.Context, asset EmittedAsset) (Handle, error)
	// FileName resolves the final file name of an emitted asset.
	FileName(h Handle) (string, error)
	// AccumulatedMap returns the JSON encoded source map of all
	// transformations done on the module so far. It is empty if there is none.
	AccumulatedMap(moduleID string) []byte
}
