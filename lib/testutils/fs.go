package testutils

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/stylemap/lib/fsext"
)

// MakeMemMapFs creates a new in-memory filesystem with the given files, keyed
// by path. The files are created with 644 mode.
func MakeMemMapFs(t *testing.T, withFiles map[string][]byte) fsext.Fs {
	fs := fsext.NewMemMapFs()

	for path, data := range withFiles {
		require.NoError(t, fsext.WriteFile(fs, path, data, 0o644))
	}

	return fs
}
