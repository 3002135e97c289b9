package cssmap

import (
	"context"
	"strings"
	"sync"
	"testing"

	gosourcemap "github.com/go-sourcemap/sourcemap"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"github.com/liuxd6825/stylemap/errext"
	"github.com/liuxd6825/stylemap/errext/exitcodes"
	"github.com/liuxd6825/stylemap/lib/testutils"
	"github.com/liuxd6825/stylemap/pipeline"
	"github.com/liuxd6825/stylemap/pipeline/stylepost"
	"github.com/liuxd6825/stylemap/sourcemap"
)

func cssLines(prefix string, n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = "." + prefix + strings.Repeat("x", i) + "{}"
	}
	return strings.Join(lines, "\n")
}

// fakeStylePost stands in for the style post processing plugin, with a fixed
// hash and file name for the style asset.
type fakeStylePost struct {
	hash     string
	fileName string

	mu     sync.Mutex
	styles map[string]string
}

func (f *fakeStylePost) Name() string { return pipeline.StylePostPlugin }

func (f *fakeStylePost) Transform(
	_ context.Context, _ pipeline.PluginContext, code, id string,
) (*pipeline.TransformResult, error) {
	if pipeline.HasExtension(id, pipeline.DefaultStyleExtensions) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.styles == nil {
			f.styles = make(map[string]string)
		}
		f.styles[id] = code
	}
	return nil, nil //nolint:nilnil
}

func (f *fakeStylePost) RenderChunk(ctx context.Context, pc pipeline.PluginContext, chunk *pipeline.RenderedChunk) error {
	f.mu.Lock()
	var parts []string
	for _, id := range chunk.ModuleIDs {
		if code, ok := f.styles[id]; ok {
			parts = append(parts, code)
		}
	}
	f.mu.Unlock()
	_, err := pc.EmitAsset(ctx, pipeline.EmittedAsset{
		Name: chunk.Name + ".css", FileName: f.fileName, Source: []byte(strings.Join(parts, "\n")),
	})
	return err
}

func (f *fakeStylePost) AugmentChunkHash(*pipeline.RenderedChunk) string { return f.hash }

func mapFiles(b *pipeline.Bundle) []string {
	var res []string
	for _, f := range b.Files() {
		if strings.HasSuffix(f.FileName, ".map") {
			res = append(res, f.FileName)
		}
	}
	return res
}

func readMap(t *testing.T, b *pipeline.Bundle, fileName string) (*sourcemap.Map, *gosourcemap.Consumer) {
	t.Helper()
	f, ok := b.Get(fileName)
	require.True(t, ok, fileName)
	m, err := sourcemap.Parse(f.Source)
	require.NoError(t, err)
	c, err := gosourcemap.Parse("", f.Source)
	require.NoError(t, err)
	return m, c
}

func TestHashedBuild(t *testing.T) {
	t.Parallel()

	aCode, bCode := cssLines("a", 10), cssLines("b", 5)
	upstream := sourcemap.Identity(aCode, "a.css")
	upstream.SourcesContent = []string{".a { color: red }"}
	upstreamJSON, err := upstream.Bytes()
	require.NoError(t, err)

	cfg := NewConfig()
	cfg.Folder = null.StringFrom("sourcemaps")
	logger, hook := testutils.NewLoggerWithHook(t)
	p := New(Params{Logger: logger, Config: cfg}).(*Plugin) //nolint:forcetypeassert

	b, err := pipeline.Build(context.Background(), pipeline.BuildOptions{
		Input: pipeline.Input{{Path: "index.js", Imports: []string{"a.css", "b.css"}}},
		Modules: []pipeline.Module{
			{ID: "index.js", Code: "import './a.css'\nimport './b.css'"},
			{ID: "a.css", Code: aCode, Map: upstreamJSON},
			{ID: "b.css", Code: bCode},
		},
		Output: pipeline.OutputOptions{
			EntryFileNames: pipeline.Static("[name]-[hash].js"),
			AssetFileNames: pipeline.Static("[name]-[hash][extname]"),
		},
		Plugins: []pipeline.Plugin{&fakeStylePost{hash: "abcd1234", fileName: "index-abcd1234.css"}, p},
		Logger:  logger,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []string{"sourcemaps/index-abcd1234.css.map"}, mapFiles(b))

	css, ok := b.Get("index-abcd1234.css")
	require.True(t, ok)
	assert.Equal(t, aCode+"\n"+bCode+"\n/*# sourceMappingURL=sourcemaps/index-abcd1234.css.map */", string(css.Source))

	m, c := readMap(t, b, "sourcemaps/index-abcd1234.css.map")
	assert.Equal(t, []string{"a.css", "b.css"}, m.Sources)
	assert.Equal(t, []string{".a { color: red }", bCode}, m.SourcesContent)
	assert.Equal(t, "index-abcd1234.css", m.File)

	source, _, line, _, ok := c.Source(10, 0)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(source, "a.css"), source)
	assert.Equal(t, 10, line)
	source, _, line, _, ok = c.Source(11, 0)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(source, "b.css"), source)
	assert.Equal(t, 1, line)
	source, _, line, _, ok = c.Source(15, 0)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(source, "b.css"), source)
	assert.Equal(t, 5, line)

	assert.Equal(t, Stats{
		ModuleMaps: 2, IdentityMaps: 1, MappedAssets: []string{"index-abcd1234.css"},
	}, p.Stats())
	assert.Empty(t, hook.Messages(logrus.WarnLevel))
}

func buildWithStylePost(
	t *testing.T, p pipeline.Plugin, output pipeline.OutputOptions, logger logrus.FieldLogger,
) *pipeline.Bundle {
	t.Helper()
	plugins := []pipeline.Plugin{stylepost.New(logger)}
	if p != nil {
		plugins = append(plugins, p)
	}
	b, err := pipeline.Build(context.Background(), pipeline.BuildOptions{
		Input: pipeline.Input{{Path: "src/main.js", Imports: []string{"src/a.css", "src/b.module.scss"}}},
		Modules: []pipeline.Module{
			{ID: "src/main.js", Code: "console.log('main')"},
			{ID: "src/a.css", Code: cssLines("a", 3)},
			{ID: "src/b.module.scss", Code: cssLines("b", 2)},
		},
		Output:  output,
		Plugins: plugins,
		Logger:  logger,
	})
	require.NoError(t, err)
	return b
}

func TestModeInvariance(t *testing.T) {
	t.Parallel()

	logger := testutils.NewLogger(t)
	hashed := buildWithStylePost(t, New(Params{Logger: logger}),
		pipeline.OutputOptions{EntryFileNames: pipeline.Static("[name]-[hash].js")}, logger)
	plain := buildWithStylePost(t, New(Params{Logger: logger}),
		pipeline.OutputOptions{EntryFileNames: pipeline.Static("[name].js")}, logger)

	cssName := "assets/main-" + pipeline.ContentHash([]byte(cssLines("a", 3)+"\n"+cssLines("b", 2))) + ".css"
	require.Equal(t, []string{cssName + ".map"}, mapFiles(hashed))
	require.Equal(t, []string{cssName + ".map"}, mapFiles(plain))

	hashedMap, ok := hashed.Get(cssName + ".map")
	require.True(t, ok)
	plainMap, ok := plain.Get(cssName + ".map")
	require.True(t, ok)
	assert.JSONEq(t, string(plainMap.Source), string(hashedMap.Source))

	hashedCSS, ok := hashed.Get(cssName)
	require.True(t, ok)
	plainCSS, ok := plain.Get(cssName)
	require.True(t, ok)
	assert.Equal(t, string(plainCSS.Source), string(hashedCSS.Source))
	assert.True(t, strings.HasSuffix(string(plainCSS.Source), "\n/*# sourceMappingURL="+baseName(cssName)+".map */"))

	m, _ := readMap(t, plain, cssName+".map")
	assert.Equal(t, []string{"src/a.css", "src/b.module.scss"}, m.Sources)
	assert.Equal(t, "AAAA;AACA;AACA;ACFA;AACA", m.Mappings)
}

func TestModeInvarianceUnhashedAssets(t *testing.T) {
	t.Parallel()

	logger, hook := testutils.NewLoggerWithHook(t)
	assets := pipeline.Static("assets/[name][extname]")
	hashed := buildWithStylePost(t, New(Params{Logger: logger}),
		pipeline.OutputOptions{EntryFileNames: pipeline.Static("[name]-[hash].js"), AssetFileNames: assets}, logger)
	plain := buildWithStylePost(t, New(Params{Logger: logger}),
		pipeline.OutputOptions{EntryFileNames: pipeline.Static("[name].js"), AssetFileNames: assets}, logger)

	require.Equal(t, []string{"assets/main.css.map"}, mapFiles(hashed))
	require.Equal(t, []string{"assets/main.css.map"}, mapFiles(plain))

	hashedMap, ok := hashed.Get("assets/main.css.map")
	require.True(t, ok)
	plainMap, ok := plain.Get("assets/main.css.map")
	require.True(t, ok)
	assert.JSONEq(t, string(plainMap.Source), string(hashedMap.Source))

	css, ok := hashed.Get("assets/main.css")
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(string(css.Source), "\n/*# sourceMappingURL=main.css.map */"))
	assert.Empty(t, hook.Messages(logrus.WarnLevel))
}

func baseName(fileName string) string {
	return fileName[strings.LastIndexByte(fileName, '/')+1:]
}

func TestGetURL(t *testing.T) {
	t.Parallel()

	logger := testutils.NewLogger(t)
	cfg := NewConfig()
	cfg.Folder = null.StringFrom("maps")
	var got []string
	p := New(Params{Logger: logger, Config: cfg, GetURL: func(mapPath string) string {
		got = append(got, mapPath)
		return "https://cdn.example.com/assets/" + mapPath
	}})
	b := buildWithStylePost(t, p, pipeline.OutputOptions{}, logger)

	files := mapFiles(b)
	require.Len(t, files, 1)
	assert.True(t, strings.HasPrefix(files[0], "assets/maps/main-"), files[0])
	require.Len(t, got, 1)
	assert.Equal(t, strings.TrimPrefix(files[0], "assets/"), got[0])

	css := b.Assets(".css")
	require.Len(t, css, 1)
	assert.Equal(t, "assets/maps/"+baseName(css[0].FileName)+".map", files[0])
	assert.Contains(t, string(css[0].Source), "/*# sourceMappingURL=https://cdn.example.com/assets/"+got[0]+" */")
}

func TestDisabled(t *testing.T) {
	t.Parallel()

	logger := testutils.NewLogger(t)
	cfg := NewConfig()
	cfg.Enabled = null.BoolFrom(false)
	p := New(Params{Logger: logger, Config: cfg})
	assert.Equal(t, PluginName, p.Name())
	_, isTransformer := p.(pipeline.Transformer)
	assert.False(t, isTransformer)

	for _, output := range []pipeline.OutputOptions{
		{},
		{EntryFileNames: pipeline.Static("[name]-[hash].js")},
	} {
		with := buildWithStylePost(t, p, output, logger)
		without := buildWithStylePost(t, nil, output, logger)
		require.Equal(t, without.Len(), with.Len())
		for _, f := range without.Files() {
			g, ok := with.Get(f.FileName)
			require.True(t, ok, f.FileName)
			assert.Equal(t, f.Source, g.Source, f.FileName)
		}
		assert.Empty(t, mapFiles(with))
	}
}

func TestAssetWithoutModules(t *testing.T) {
	t.Parallel()

	logger, hook := testutils.NewLoggerWithHook(t, logrus.WarnLevel)
	cfg := NewConfig()
	cfg.Extensions = []string{".less"}
	p := New(Params{Logger: logger, Config: cfg}).(*Plugin) //nolint:forcetypeassert
	b := buildWithStylePost(t, p, pipeline.OutputOptions{EntryFileNames: pipeline.Static("[name]-[hash].js")}, logger)

	css := b.Assets(".css")
	require.Len(t, css, 1)
	assert.Equal(t, cssLines("a", 3)+"\n"+cssLines("b", 2), string(css[0].Source))
	assert.Empty(t, mapFiles(b))

	assert.True(t, testutils.LogContains(hook.Drain(), logrus.WarnLevel, "No source map found for "+css[0].FileName))
	assert.Equal(t, []string{css[0].FileName}, p.Stats().SkippedAssets)
	assert.Empty(t, p.Stats().MappedAssets)
}

func TestModuleMapsAreNeverShipped(t *testing.T) {
	t.Parallel()

	logger := testutils.NewLogger(t)
	p := New(Params{Logger: logger}).(*Plugin) //nolint:forcetypeassert
	b, err := pipeline.Build(context.Background(), pipeline.BuildOptions{
		Input: pipeline.Input{{Path: "src/main.js", Imports: []string{"src/a.css"}}},
		Modules: []pipeline.Module{
			{ID: "src/main.js", Code: "1"},
			{ID: "src/a.css", Code: "a{}"},
		},
		// nothing turns the styles into an asset
		Plugins: []pipeline.Plugin{stylepost.New(logger, ".less"), p},
		Logger:  logger,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, b.Len())
	assert.True(t, b.Has("main.js"))
	assert.Equal(t, 1, p.Stats().ModuleMaps)
}

func TestUnparseableUpstreamMap(t *testing.T) {
	t.Parallel()

	logger, hook := testutils.NewLoggerWithHook(t)
	p := New(Params{Logger: logger}).(*Plugin) //nolint:forcetypeassert
	b, err := pipeline.Build(context.Background(), pipeline.BuildOptions{
		Input: pipeline.Input{{Path: "src/main.js", Imports: []string{"src/a.css"}}},
		Modules: []pipeline.Module{
			{ID: "src/main.js", Code: "1"},
			{ID: "src/a.css", Code: "a{}\nb{}", Map: []byte(`{"version":2,"sources":["a.scss"],"mappings":"AAAA"}`)},
		},
		Plugins: []pipeline.Plugin{stylepost.New(logger), p},
		Logger:  logger,
	})
	require.NoError(t, err)

	assert.True(t, testutils.LogContains(hook.Drain(), logrus.WarnLevel, "Couldn't parse the source map of src/a.css"))
	files := mapFiles(b)
	require.Len(t, files, 1)
	m, _ := readMap(t, b, files[0])
	assert.Equal(t, []string{"src/a.css"}, m.Sources)
	assert.Equal(t, "AAAA;AACA", m.Mappings)
	assert.Equal(t, 1, p.Stats().IdentityMaps)
}

func TestDynamicPatterns(t *testing.T) {
	t.Parallel()

	logger := testutils.NewLogger(t)
	cfg := NewConfig()
	cfg.Folder = null.StringFrom("sourcemaps")
	p := New(Params{Logger: logger, Config: cfg}).(*Plugin) //nolint:forcetypeassert
	b := buildWithStylePost(t, p, pipeline.OutputOptions{
		EntryFileNames: pipeline.Dynamic(func(info pipeline.PreRendered) string {
			if info.IsEntry {
				return "js/[name]-[hash].js"
			}
			return "js/[name].js"
		}),
		AssetFileNames: pipeline.Dynamic(func(info pipeline.PreRendered) string {
			if strings.HasSuffix(info.Name, ".css") {
				return "styles/[name]-[hash][extname]"
			}
			return "meta/[name]-[hash][extname]"
		}),
	}, logger)

	cssName := "styles/main-" + pipeline.ContentHash([]byte(cssLines("a", 3)+"\n"+cssLines("b", 2))) + ".css"
	assert.Equal(t, []string{"styles/sourcemaps/" + baseName(cssName) + ".map"}, mapFiles(b))
	assert.Equal(t, []string{cssName}, p.Stats().MappedAssets)
}

func TestInvalidPattern(t *testing.T) {
	t.Parallel()

	logger := testutils.NewLogger(t)
	_, err := pipeline.Build(context.Background(), pipeline.BuildOptions{
		Input:   pipeline.Input{{Path: "src/main.js"}},
		Modules: []pipeline.Module{{ID: "src/main.js"}},
		Output: pipeline.OutputOptions{
			AssetFileNames: pipeline.Dynamic(func(pipeline.PreRendered) string { return "" }),
		},
		Plugins: []pipeline.Plugin{stylepost.New(logger), New(Params{Logger: logger})},
		Logger:  logger,
	})
	require.ErrorIs(t, err, pipeline.ErrInvalidPattern)
	assert.Contains(t, err.Error(), "assetFileNames")
	var ecerr errext.HasExitCode
	require.ErrorAs(t, err, &ecerr)
	assert.Equal(t, exitcodes.InvalidConfig, ecerr.ExitCode())
}

func TestMissingStylePost(t *testing.T) {
	t.Parallel()

	logger := testutils.NewLogger(t)
	_, err := pipeline.Build(context.Background(), pipeline.BuildOptions{
		Input:   pipeline.Input{{Path: "src/main.js", Imports: []string{"src/a.css"}}},
		Modules: []pipeline.Module{{ID: "src/main.js"}, {ID: "src/a.css"}},
		Plugins: []pipeline.Plugin{New(Params{Logger: logger})},
		Logger:  logger,
	})
	require.ErrorIs(t, err, pipeline.ErrHookNotFound)

	var ecerr errext.HasExitCode
	require.ErrorAs(t, err, &ecerr)
	assert.Equal(t, exitcodes.InvalidConfig, ecerr.ExitCode())
	assert.Contains(t, errext.Hint(err), "make sure it is installed before "+PluginName)

	p := New(Params{Logger: logger}).(*Plugin) //nolint:forcetypeassert
	err = p.BuildStart(context.Background(), &pipeline.BuildStartInput{Input: pipeline.Input{{Path: "src/main.js"}}})
	require.ErrorAs(t, err, &ecerr)
	assert.Equal(t, exitcodes.InvalidConfig, ecerr.ExitCode())
}

func TestHooksOutsideOfBuild(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	logger := testutils.NewLogger(t)
	p := New(Params{Logger: logger}).(*Plugin) //nolint:forcetypeassert
	chunk := &pipeline.RenderedChunk{Name: "main", ModuleIDs: []string{"src/a.css"}}

	_, err := p.OutputOptions(pipeline.OutputOptions{})
	require.ErrorIs(t, err, ErrBuildNotStarted)
	_, err = p.Transform(ctx, nil, "a{}", "src/a.css")
	require.ErrorIs(t, err, ErrBuildNotStarted)
	require.ErrorIs(t, p.RenderChunk(ctx, nil, chunk), ErrBuildNotStarted)
	require.ErrorIs(t, p.GenerateBundle(ctx, nil, pipeline.OutputOptions{}, pipeline.NewBundle()), ErrBuildNotStarted)

	buildWithStylePost(t, p, pipeline.OutputOptions{}, logger)

	_, err = p.Transform(ctx, nil, "a{}", "src/a.css")
	require.ErrorIs(t, err, ErrBuildDone)
	_, err = p.Transform(ctx, nil, "1", "src/main.js")
	require.ErrorIs(t, err, ErrBuildDone)
	require.ErrorIs(t, p.RenderChunk(ctx, nil, chunk), ErrBuildDone)
	require.ErrorIs(t, p.GenerateBundle(ctx, nil, pipeline.OutputOptions{}, pipeline.NewBundle()), ErrBuildDone)
	_, err = p.OutputOptions(pipeline.OutputOptions{})
	require.ErrorIs(t, err, ErrBuildDone)

	// a new build starts from scratch
	b := buildWithStylePost(t, p, pipeline.OutputOptions{}, logger)
	assert.Len(t, mapFiles(b), 1)
}
