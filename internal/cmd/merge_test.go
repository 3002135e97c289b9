package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/stylemap/errext/exitcodes"
	"github.com/liuxd6825/stylemap/internal/cmd/tests"
	"github.com/liuxd6825/stylemap/sourcemap"
)

func identityMapFile(t *testing.T, code, id string) string {
	t.Helper()
	b, err := sourcemap.Identity(code, id).Bytes()
	require.NoError(t, err)
	return string(b)
}

func TestMerge(t *testing.T) {
	t.Parallel()

	t.Run("to a file", func(t *testing.T) {
		t.Parallel()

		ts := tests.NewGlobalTestState(t)
		ts.WriteFiles(t, map[string]string{
			"a.css.map": identityMapFile(t, "a{}\nb{}", "a.css"),
			"b.css.map": identityMapFile(t, "c{}", "b.css"),
		})
		ts.CmdArgs = []string{
			"stylemap", "merge", ts.Path("a.css.map"), ts.Path("b.css.map"),
			"--file", "all.css", "-o", ts.Path("out/all.css.map"),
		}
		newRootCommand(ts.GlobalState).execute()

		m, err := sourcemap.Parse([]byte(ts.ReadFile(t, "out/all.css.map")))
		require.NoError(t, err)
		assert.Equal(t, "all.css", m.File)
		assert.Equal(t, []string{"a.css", "b.css"}, m.Sources)
		assert.Equal(t, "AAAA;AACA;ACDA", m.Mappings)
		assert.Empty(t, ts.Stdout.String())
	})

	t.Run("lines from the generated file", func(t *testing.T) {
		t.Parallel()

		ts := tests.NewGlobalTestState(t)
		ts.WriteFiles(t, map[string]string{
			// a.css has a tail the map doesn't cover
			"a.css":     "a{}\n\n\n",
			"a.css.map": identityMapFile(t, "a{}", "a.css"),
			"b.css.map": identityMapFile(t, "c{}", "b.css"),
		})
		ts.CmdArgs = []string{"stylemap", "merge", ts.Path("a.css.map"), ts.Path("b.css.map")}
		newRootCommand(ts.GlobalState).execute()

		m, err := sourcemap.Parse([]byte(ts.Stdout.String()))
		require.NoError(t, err)
		assert.Equal(t, "AAAA;;;;ACAA", m.Mappings)
	})

	t.Run("invalid map", func(t *testing.T) {
		t.Parallel()

		ts := tests.NewGlobalTestState(t)
		ts.WriteFiles(t, map[string]string{"a.css.map": `{"version": 2}`})
		ts.CmdArgs = []string{"stylemap", "merge", ts.Path("a.css.map")}
		ts.ExpectedExitCode = int(exitcodes.InvalidConfig)
		newRootCommand(ts.GlobalState).execute()
	})
}
