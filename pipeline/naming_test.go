package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		template, name, hash, expected string
	}{
		{"[name].js", "index.js", "", "index.js"},
		{"[name]-[hash].js", "index.js", "abcd1234", "index-abcd1234.js"},
		{"assets/[name]-[hash][extname]", "index.css", "abcd1234", "assets/index-abcd1234.css"},
		{"assets/[name].[ext]", "a.module.css", "x", "assets/a.module.css"},
		{"[name][extname]", "dir/b.map", "", "b.map"},
		{"static/[hash]", "a.css", "00ff00ff", "static/00ff00ff"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, Expand(tc.template, tc.name, tc.hash), tc.template)
	}
}

func TestHasHash(t *testing.T) {
	t.Parallel()

	assert.True(t, HasHash("[name]-[hash].js"))
	assert.True(t, HasHash("[hash]/[name].js"))
	assert.False(t, HasHash("[name].js"))
	assert.False(t, HasHash("[name]-hash.js"))
}

func TestNamingPatternResolve(t *testing.T) {
	t.Parallel()

	t.Run("Static", func(t *testing.T) {
		t.Parallel()
		p := Static("[name]-[hash].js")
		require.True(t, p.IsSet())
		assert.False(t, p.IsDynamic())
		template, err := p.Resolve(PreRendered{Name: "index"})
		require.NoError(t, err)
		assert.Equal(t, "[name]-[hash].js", template)
		assert.Equal(t, "[name]-[hash].js", p.String())
	})

	t.Run("Dynamic", func(t *testing.T) {
		t.Parallel()
		p := Dynamic(func(info PreRendered) string {
			if info.IsEntry {
				return "entries/[name]-[hash].js"
			}
			return "[name].js"
		})
		require.True(t, p.IsSet())
		assert.True(t, p.IsDynamic())

		template, err := p.Resolve(PreRendered{Name: "index", Type: ChunkFile, IsEntry: true})
		require.NoError(t, err)
		assert.Equal(t, "entries/[name]-[hash].js", template)

		template, err = p.Resolve(PreRendered{Name: "vendor", Type: ChunkFile})
		require.NoError(t, err)
		assert.Equal(t, "[name].js", template)
		assert.Equal(t, "<dynamic>", p.String())
	})

	t.Run("Unset", func(t *testing.T) {
		t.Parallel()
		var p NamingPattern
		assert.False(t, p.IsSet())
		_, err := p.Resolve(PreRendered{Name: "index"})
		require.ErrorIs(t, err, ErrInvalidPattern)
	})

	t.Run("NilFunction", func(t *testing.T) {
		t.Parallel()
		_, err := Dynamic(nil).Resolve(PreRendered{Name: "index"})
		require.ErrorIs(t, err, ErrInvalidPattern)
	})

	t.Run("EmptyTemplate", func(t *testing.T) {
		t.Parallel()
		_, err := Dynamic(func(PreRendered) string { return "" }).Resolve(PreRendered{Name: "index"})
		require.ErrorIs(t, err, ErrInvalidPattern)
		assert.Contains(t, err.Error(), "index")
	})
}

func TestOutputOptionsWithDefaults(t *testing.T) {
	t.Parallel()

	opts := OutputOptions{EntryFileNames: Static("[name]-[hash].js")}.WithDefaults()
	assert.Equal(t, "[name]-[hash].js", opts.EntryFileNames.String())
	assert.Equal(t, DefaultChunkFileNames, opts.ChunkFileNames.String())
	assert.Equal(t, DefaultAssetFileNames, opts.AssetFileNames.String())
}

func TestHasExtension(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		id       string
		expected bool
	}{
		{"src/a.css", true},
		{"src/a.module.scss", true},
		{"src/a.css?inline", true},
		{"src/a.less?used&lang.less", true},
		{"src/main.js", false},
		{"src/css.js", false},
		{"src/a.css.js", false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, HasExtension(tc.id, DefaultStyleExtensions), tc.id)
	}
	assert.False(t, HasExtension("a.css", nil))
	assert.False(t, HasExtension("a.css", []string{""}))
}

func TestInputTemplateName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Input{}.TemplateName())
	assert.Equal(t, "index", Input{{Path: "src/index.ts"}, {Path: "src/admin.ts"}}.TemplateName())
	assert.Equal(t, "app", Input{{Alias: "app", Path: "src/index.ts"}}.TemplateName())
	assert.Equal(t, "main", Stem("src/main.tsx"))
}

func TestContentHash(t *testing.T) {
	t.Parallel()

	h := ContentHash([]byte("a{}"))
	assert.Len(t, h, HashLength)
	assert.Equal(t, h, ContentHash([]byte("a{}")))
	assert.Equal(t, h, ContentHash([]byte("a"), []byte("{}")))
	assert.NotEqual(t, h, ContentHash([]byte("b{}")))
	assert.Regexp(t, "^[0-9a-f]{8}$", h)
}
