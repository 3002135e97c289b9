package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// the defaults rollup uses
const (
	DefaultEntryFileNames = "[name].js"
	DefaultChunkFileNames = "[name]-[hash].js"
	DefaultAssetFileNames = "assets/[name]-[hash][extname]"
)

// OutputOptions controls how output files are named.
type OutputOptions struct {
	EntryFileNames NamingPattern
	ChunkFileNames NamingPattern
	AssetFileNames NamingPattern
}

// WithDefaults returns the options with every unset pattern set to its default.
func (o OutputOptions) WithDefaults() OutputOptions {
	if !o.EntryFileNames.IsSet() {
		o.EntryFileNames = Static(DefaultEntryFileNames)
	}
	if !o.ChunkFileNames.IsSet() {
		o.ChunkFileNames = Static(DefaultChunkFileNames)
	}
	if !o.AssetFileNames.IsSet() {
		o.AssetFileNames = Static(DefaultAssetFileNames)
	}
	return o
}

// Module is the source of a single module.
type Module struct {
	ID   string
	Code string
	// Map is a JSON encoded source map for Code produced before the build,
	// for example by a preprocessor.
	Map []byte
}

// BuildOptions are the options of Build.
type BuildOptions struct {
	Input   Input
	Modules []Module
	Output  OutputOptions
	Plugins []Plugin
	Logger  logrus.FieldLogger

	// Concurrency limits how many modules are transformed at the same time.
	// Zero or less means no limit.
	Concurrency int
}

// Build runs all the lifecycle hooks of the installed plugins for the given
// modules and returns the resulting output set.
func Build(ctx context.Context, opts BuildOptions) (*Bundle, error) {
	if len(opts.Input) == 0 {
		return nil, errors.New("no input entries")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	b := &builder{
		opts:        opts,
		logger:      logger.WithField("component", "pipeline"),
		modules:     make(map[string]Module, len(opts.Modules)),
		accumulated: make(map[string][]byte),
		transformed: make(map[string]string),
		handles:     make(map[Handle]string),
		bundle:      NewBundle(),
		chunkHash:   NewChunkHashHooks(opts.Plugins),
	}
	for _, m := range opts.Modules {
		b.modules[m.ID] = m
		if len(m.Map) > 0 {
			b.accumulated[m.ID] = m.Map
		}
	}
	return b.run(ctx)
}

type builder struct {
	opts   BuildOptions
	output OutputOptions
	logger logrus.FieldLogger

	modules   map[string]Module
	chunkHash *ChunkHashHooks

	mu          sync.Mutex
	accumulated map[string][]byte
	transformed map[string]string
	handles     map[Handle]string
	handleSeq   uint64
	bundle      *Bundle
}

var _ PluginContext = &builder{}

func (b *builder) run(ctx context.Context) (*Bundle, error) {
	if err := b.buildStart(ctx); err != nil {
		return nil, err
	}
	if err := b.outputOptions(); err != nil {
		return nil, err
	}
	if err := b.transformAll(ctx); err != nil {
		return nil, err
	}
	for _, entry := range b.opts.Input {
		if err := b.renderEntry(ctx, entry); err != nil {
			return nil, err
		}
	}
	for _, p := range b.opts.Plugins {
		if g, ok := p.(BundleGenerator); ok {
			if err := g.GenerateBundle(ctx, b, b.output, b.bundle); err != nil {
				return nil, fmt.Errorf("plugin %s: generate bundle: %w", p.Name(), err)
			}
		}
	}
	b.logger.WithField("files", b.bundle.Len()).Debug("Bundle generated")
	return b.bundle, nil
}

func (b *builder) buildStart(ctx context.Context) error {
	in := &BuildStartInput{Input: b.opts.Input, Plugins: b.opts.Plugins, ChunkHash: b.chunkHash}
	for _, p := range b.opts.Plugins {
		if s, ok := p.(BuildStarter); ok {
			if err := s.BuildStart(ctx, in); err != nil {
				return fmt.Errorf("plugin %s: build start: %w", p.Name(), err)
			}
		}
	}
	return nil
}

func (b *builder) outputOptions() error {
	b.output = b.opts.Output.WithDefaults()
	for _, p := range b.opts.Plugins {
		if h, ok := p.(OutputOptionsHook); ok {
			out, err := h.OutputOptions(b.output)
			if err != nil {
				return fmt.Errorf("plugin %s: output options: %w", p.Name(), err)
			}
			b.output = out.WithDefaults()
		}
	}
	return nil
}

// moduleIDs returns every module reachable from the input, entries last.
func (b *builder) moduleIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, entry := range b.opts.Input {
		for _, id := range entry.Imports {
			add(id)
		}
		add(entry.Path)
	}
	return ids
}

func (b *builder) transformAll(ctx context.Context) error {
	ids := b.moduleIDs()
	for _, id := range ids {
		if _, ok := b.modules[id]; !ok {
			return fmt.Errorf("module %q is imported but wasn't provided", id)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if b.opts.Concurrency > 0 {
		g.SetLimit(b.opts.Concurrency)
	}
	for _, id := range ids {
		m := b.modules[id]
		g.Go(func() error {
			return b.transform(ctx, m)
		})
	}
	return g.Wait()
}

func (b *builder) transform(ctx context.Context, m Module) error {
	code := m.Code
	for _, p := range b.opts.Plugins {
		t, ok := p.(Transformer)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := t.Transform(ctx, b, code, m.ID)
		if err != nil {
			return fmt.Errorf("plugin %s: transform %s: %w", p.Name(), m.ID, err)
		}
		if res == nil {
			continue
		}
		code = res.Code
		if len(res.Map) > 0 {
			b.mu.Lock()
			b.accumulated[m.ID] = res.Map
			b.mu.Unlock()
		}
	}
	b.mu.Lock()
	b.transformed[m.ID] = code
	b.mu.Unlock()
	return nil
}

func (b *builder) renderEntry(ctx context.Context, entry InputEntry) error {
	name := entry.Name()
	template, err := b.output.EntryFileNames.Resolve(PreRendered{Name: name, Type: ChunkFile, IsEntry: true})
	if err != nil {
		return fmt.Errorf("entry %s: %w", name, err)
	}

	b.mu.Lock()
	code := b.transformed[entry.Path]
	b.mu.Unlock()

	chunk := &RenderedChunk{
		Name:      name,
		IsEntry:   true,
		FileName:  Expand(template, name+".js", "[hash]"),
		ModuleIDs: append(append([]string(nil), entry.Imports...), entry.Path),
		Code:      code,
	}
	for _, p := range b.opts.Plugins {
		if r, ok := p.(ChunkRenderer); ok {
			if err := r.RenderChunk(ctx, b, chunk); err != nil {
				return fmt.Errorf("plugin %s: render chunk %s: %w", p.Name(), name, err)
			}
		}
	}

	var hash string
	if HasHash(template) {
		parts := [][]byte{[]byte(chunk.Code)}
		for _, part := range b.chunkHash.Compute(chunk) {
			parts = append(parts, []byte(part))
		}
		hash = ContentHash(parts...)
	}
	chunk.FileName = Expand(template, name+".js", hash)

	b.bundle.Add(&OutputFile{FileName: chunk.FileName, Name: name, Type: ChunkFile, Source: []byte(chunk.Code)})
	b.logger.WithFields(logrus.Fields{"chunk": name, "fileName": chunk.FileName}).Debug("Chunk rendered")
	return nil
}

// EmitAsset implements PluginContext.
func (b *builder) EmitAsset(ctx context.Context, asset EmittedAsset) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fileName := asset.FileName
	if fileName == "" {
		if asset.Name == "" {
			return "", errors.New("an emitted asset needs a name or a file name")
		}
		template, err := b.output.AssetFileNames.Resolve(PreRendered{Name: asset.Name, Type: AssetFile})
		if err != nil {
			return "", fmt.Errorf("asset %s: %w", asset.Name, err)
		}
		fileName = Expand(template, asset.Name, ContentHash(asset.Source))
	}

	f := &OutputFile{FileName: fileName, Name: asset.Name, Type: AssetFile, Source: asset.Source}
	if asset.FileName == "" {
		fileName = b.bundle.addUnique(f)
	} else {
		if b.bundle.Has(fileName) {
			b.logger.WithField("fileName", fileName).Warn("An emitted asset overwrites an existing file")
		}
		b.bundle.Add(f)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handleSeq++
	h := Handle(strconv.FormatUint(b.handleSeq, 36))
	b.handles[h] = fileName
	return h, nil
}

// FileName implements PluginContext.
func (b *builder) FileName(h Handle) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fileName, ok := b.handles[h]
	if !ok {
		return "", fmt.Errorf("unknown asset handle %q", h)
	}
	return fileName, nil
}

// AccumulatedMap implements PluginContext.
func (b *builder) AccumulatedMap(moduleID string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accumulated[moduleID]
}
