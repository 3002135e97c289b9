// Package tests contains the helpers for the integration-like tests of the
// stylemap commands.
package tests

import (
	"bytes"
	"context"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/stylemap/cmd/state"
	"github.com/liuxd6825/stylemap/lib/fsext"
	"github.com/liuxd6825/stylemap/lib/testutils"
)

// GlobalTestState is a wrapper around GlobalState for use in tests.
type GlobalTestState struct {
	*state.GlobalState
	Cancel func()

	Stdout, Stderr *SyncBuffer
	LoggerHook     *testutils.SimpleLogrusHook

	Cwd string

	ExpectedExitCode int
}

// SyncBuffer is a bytes.Buffer that can be written from many goroutines.
type SyncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *SyncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// NewGlobalTestState returns an initialized GlobalTestState, mocking all
// GlobalState fields for use in tests. The filesystem is in memory and the
// working directory is /test/.
func NewGlobalTestState(tb testing.TB) *GlobalTestState {
	ctx, cancel := context.WithCancel(context.Background())
	tb.Cleanup(cancel)

	fs := fsext.NewMemMapFs()
	cwd := "/test/"
	if runtime.GOOS == "windows" {
		cwd = "c:\\test\\"
	}
	require.NoError(tb, fs.MkdirAll(cwd, 0o755))

	logger := &logrus.Logger{
		Out:       testutils.NewTestOutput(tb),
		Formatter: &logrus.TextFormatter{},
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.InfoLevel,
	}
	hook := testutils.NewLogHook()
	logger.AddHook(hook)

	ts := &GlobalTestState{
		Cwd:        cwd,
		Cancel:     cancel,
		LoggerHook: hook,
		Stdout:     new(SyncBuffer),
		Stderr:     new(SyncBuffer),
	}

	osExitCalled := false
	defaultOsExitHandle := func(exitCode int) {
		cancel()
		require.Equal(tb, ts.ExpectedExitCode, exitCode)
		osExitCalled = true
	}

	tb.Cleanup(func() {
		if ts.ExpectedExitCode > 0 {
			// Ensure that, if we expected to receive an error, our `os.Exit()` mock
			// function was actually called.
			require.Truef(tb, osExitCalled, "expected exit code %d, but the os.Exit() mock was not called", ts.ExpectedExitCode)
		}
	})

	defaultFlags := state.GetDefaultGlobalOptions()

	ts.GlobalState = &state.GlobalState{
		Ctx:            ctx,
		FS:             fs,
		Getwd:          func() (string, error) { return ts.Cwd, nil },
		BinaryName:     "stylemap",
		CmdArgs:        []string{},
		Env:            map[string]string{},
		DefaultFlags:   defaultFlags,
		Flags:          defaultFlags,
		Stdout:         &state.Writer{Writer: ts.Stdout},
		Stderr:         &state.Writer{Writer: ts.Stderr},
		Stdin:          new(bytes.Buffer),
		OSExit:         defaultOsExitHandle,
		SignalNotify:   signal.Notify,
		SignalStop:     signal.Stop,
		Logger:         logger,
		FallbackLogger: testutils.NewLogger(tb).WithField("fallback", true),
	}
	return ts
}

// WriteFiles writes files, keyed by their path relative to the working directory.
func (ts *GlobalTestState) WriteFiles(tb testing.TB, files map[string]string) {
	for name, data := range files {
		p := ts.Path(name)
		require.NoError(tb, ts.FS.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(tb, fsext.WriteFile(ts.FS, p, []byte(data), 0o644))
	}
}

// ReadFile reads a file relative to the working directory.
func (ts *GlobalTestState) ReadFile(tb testing.TB, name string) string {
	b, err := fsext.ReadFile(ts.FS, ts.Path(name))
	require.NoError(tb, err)
	return string(b)
}

// Path returns the absolute path of a slash separated path relative to the
// working directory.
func (ts *GlobalTestState) Path(name string) string {
	return filepath.Join(ts.Cwd, filepath.FromSlash(name))
}
