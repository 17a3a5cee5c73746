package netutil

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loomerrors "github.com/loomctl/loom/internal/errors"
)

func TestFindFreePort(t *testing.T) {
	t.Run("skips an occupied port", func(t *testing.T) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer func() { _ = l.Close() }()
		occupied := l.Addr().(*net.TCPAddr).Port

		port, err := FindFreePort(occupied, 10)
		require.NoError(t, err)
		assert.Greater(t, port, occupied)
	})

	t.Run("invalid start port", func(t *testing.T) {
		_, err := FindFreePort(0, 10)
		require.ErrorIs(t, err, loomerrors.ErrPortUnavailable)
	})
}

func TestFindEphemeralPort(t *testing.T) {
	port, err := FindEphemeralPort()
	require.NoError(t, err)
	assert.Positive(t, port)
}
