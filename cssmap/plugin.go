// Package cssmap implements a pipeline plugin that ships one source map per
// style asset. Every style module gets a map of its own while it is
// transformed (an identity map if nothing upstream made one), the plugin
// tracks which modules end up in which, possibly hashed, style asset and
// when the bundle is generated it concatenates the maps of the modules of
// each asset into a single map.
package cssmap

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/liuxd6825/stylemap/pipeline"
)

// PluginName is the name the plugin is installed under.
const PluginName = "stylemap:css-sourcemap"

// Params contains everything needed to create the plugin.
type Params struct {
	Logger logrus.FieldLogger
	Config Config
	// GetURL formats the location written in the sourceMappingURL comment of
	// an asset. It gets the path of the map relative to the asset.
	GetURL func(mapPath string) string
}

// Plugin is the style source map plugin. A Plugin serves one build at a
// time, the state of a build is reset when the next one starts.
type Plugin struct {
	logger logrus.FieldLogger
	config Config
	getURL func(string) string

	mu    sync.Mutex
	build *buildContext
	stats Stats
}

var (
	_ pipeline.BuildStarter      = &Plugin{}
	_ pipeline.OutputOptionsHook = &Plugin{}
	_ pipeline.Transformer       = &Plugin{}
	_ pipeline.ChunkRenderer     = &Plugin{}
	_ pipeline.BundleGenerator   = &Plugin{}
)

type disabledPlugin struct{}

func (disabledPlugin) Name() string { return PluginName }

// New returns the plugin for params. A disabled plugin implements no hooks.
func New(params Params) pipeline.Plugin {
	if params.Config.Enabled.Valid && !params.Config.Enabled.Bool {
		return disabledPlugin{}
	}
	if len(params.Config.Extensions) == 0 {
		params.Config.Extensions = pipeline.DefaultStyleExtensions
	}
	if params.GetURL == nil {
		params.GetURL = func(mapPath string) string { return mapPath }
	}
	if params.Logger == nil {
		params.Logger = logrus.StandardLogger()
	}
	return &Plugin{
		logger: params.Logger.WithField("plugin", PluginName),
		config: params.Config,
		getURL: params.GetURL,
	}
}

// Name implements pipeline.Plugin.
func (p *Plugin) Name() string {
	return PluginName
}

// Stats returns what the plugin did in the last finished build.
func (p *Plugin) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Plugin) current() (*buildContext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.build == nil {
		return nil, ErrBuildNotStarted
	}
	return p.build, nil
}

// BuildStart starts a new build and hooks into the chunk hash of the style
// post processing plugin. It fails if that plugin isn't installed.
func (p *Plugin) BuildStart(_ context.Context, in *pipeline.BuildStartInput) error {
	bc := newBuildContext(p.logger, p.config, p.getURL)
	bc.templateName = in.Input.TemplateName()
	bc.entries = len(in.Input)
	if err := bc.installInterceptor(in.ChunkHash); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.build = bc
	return nil
}

// OutputOptions records the output options, which it returns unchanged.
func (p *Plugin) OutputOptions(opts pipeline.OutputOptions) (pipeline.OutputOptions, error) {
	bc, err := p.current()
	if err != nil {
		return opts, err
	}
	return opts, bc.decideHashMode(opts)
}

// Transform registers the source map of style modules.
func (p *Plugin) Transform(
	ctx context.Context, pc pipeline.PluginContext, code, id string,
) (*pipeline.TransformResult, error) {
	bc, err := p.current()
	if err != nil {
		return nil, err
	}
	return bc.registerModuleMap(ctx, pc, code, id)
}

// RenderChunk associates the style modules of chunk with its style asset
// when the output isn't hashed.
func (p *Plugin) RenderChunk(_ context.Context, _ pipeline.PluginContext, chunk *pipeline.RenderedChunk) error {
	bc, err := p.current()
	if err != nil {
		return err
	}
	return bc.associateChunk(chunk)
}

// GenerateBundle merges the source maps of every style asset.
func (p *Plugin) GenerateBundle(
	ctx context.Context, pc pipeline.PluginContext, _ pipeline.OutputOptions, bundle *pipeline.Bundle,
) error {
	bc, err := p.current()
	if err != nil {
		return err
	}
	if err := bc.mergeAssets(ctx, pc, bundle); err != nil {
		return err
	}

	bc.mu.Lock()
	stats := bc.stats
	bc.assets, bc.chunkHashes, bc.maps = nil, nil, nil
	bc.mu.Unlock()

	p.mu.Lock()
	p.stats = stats
	p.mu.Unlock()
	return nil
}
