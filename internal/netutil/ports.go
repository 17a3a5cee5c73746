// Package netutil provides small networking helpers.
package netutil

import (
	"fmt"
	"net"
	"strconv"

	"github.com/loomctl/loom/internal/constants"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

// FindFreePort probes upward from start until it finds a TCP port that can
// be bound on localhost, checking at most limit candidates. The port is
// released again before returning; the caller races other processes for it,
// which is acceptable for local dev tooling.
func FindFreePort(start, limit int) (int, error) {
	if limit <= 0 {
		limit = constants.DefaultPortProbeLimit
	}
	if start <= 0 || start > 65535 {
		return 0, fmt.Errorf("%w: invalid start port %d", loomerrors.ErrPortUnavailable, start)
	}
	for port := start; port < start+limit && port <= 65535; port++ {
		l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err != nil {
			continue
		}
		_ = l.Close()
		return port, nil
	}
	return 0, fmt.Errorf("%w: no free port in [%d, %d)", loomerrors.ErrPortUnavailable, start, start+limit)
}

// FindEphemeralPort asks the kernel for any free port.
func FindEphemeralPort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("%w: %s", loomerrors.ErrPortUnavailable, err)
	}
	defer func() { _ = l.Close() }()
	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, loomerrors.ErrPortUnavailable
	}
	return addr.Port, nil
}
