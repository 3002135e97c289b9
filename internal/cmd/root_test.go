package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/stylemap/internal/cmd/tests"
)

func TestRootCommand(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		"Just root": {"stylemap"},
		"Help flag": {"stylemap", "--help"},
	}

	helptxt := "Usage:\n  stylemap [command]"
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ts := tests.NewGlobalTestState(t)
			ts.CmdArgs = args
			ExecuteWithGlobalState(ts.GlobalState)
			assert.Len(t, ts.LoggerHook.Drain(), 0)
			assert.Contains(t, ts.Stdout.String(), helptxt)
		})
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()

	t.Run("text", func(t *testing.T) {
		t.Parallel()
		ts := tests.NewGlobalTestState(t)
		ts.CmdArgs = []string{"stylemap", "version"}
		newRootCommand(ts.GlobalState).execute()
		assert.Contains(t, ts.Stdout.String(), "stylemap v"+Version)
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		ts := tests.NewGlobalTestState(t)
		ts.CmdArgs = []string{"stylemap", "version", "--json"}
		newRootCommand(ts.GlobalState).execute()

		var details map[string]string
		require.NoError(t, json.Unmarshal([]byte(ts.Stdout.String()), &details))
		assert.Equal(t, "v"+Version, details["version"])
		assert.NotEmpty(t, details["go_version"])
	})
}

func TestLogOutputFile(t *testing.T) {
	t.Parallel()

	ts := tests.NewGlobalTestState(t)
	ts.WriteFiles(t, sourceFiles("stylemap.yaml", hashedManifest))
	ts.CmdArgs = []string{
		"stylemap", "build", "-q", "-v",
		"--log-output", "file=" + ts.Path("logs/build.log"), "--log-format", "json",
	}
	require.NoError(t, ts.FS.MkdirAll(ts.Path("logs"), 0o755))
	newRootCommand(ts.GlobalState).execute()

	logs := ts.ReadFile(t, "logs/build.log")
	assert.Contains(t, logs, `"msg":"Merged style source maps"`)
	assert.Contains(t, logs, `"level":"debug"`)
	assert.Empty(t, ts.Stderr.String())
}
