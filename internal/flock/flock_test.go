//go:build unix

package flock_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomctl/loom/internal/flock"
)

func openLockFile(t *testing.T) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.yaml.lock")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600) // #nosec G304 -- temp dir
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestExclusive(t *testing.T) {
	t.Parallel()

	t.Run("acquires and releases", func(t *testing.T) {
		t.Parallel()
		f := openLockFile(t)

		require.NoError(t, flock.Exclusive(f.Fd()))
		require.NoError(t, flock.Unlock(f.Fd()))
	})

	t.Run("second handle is rejected while held", func(t *testing.T) {
		t.Parallel()
		f1 := openLockFile(t)
		require.NoError(t, flock.Exclusive(f1.Fd()))

		// A second open of the same path simulates a second loom process.
		f2, err := os.OpenFile(f1.Name(), os.O_RDWR, 0o600) // #nosec G304 -- temp dir
		require.NoError(t, err)
		t.Cleanup(func() { _ = f2.Close() })

		assert.Error(t, flock.Exclusive(f2.Fd()))

		require.NoError(t, flock.Unlock(f1.Fd()))
		assert.NoError(t, flock.Exclusive(f2.Fd()))
		require.NoError(t, flock.Unlock(f2.Fd()))
	})

	t.Run("reacquire after unlock", func(t *testing.T) {
		t.Parallel()
		f := openLockFile(t)

		for range 3 {
			require.NoError(t, flock.Exclusive(f.Fd()))
			require.NoError(t, flock.Unlock(f.Fd()))
		}
	})
}
