//go:build unix

package signal_test

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loomsignal "github.com/loomctl/loom/internal/signal"
)

func TestHandlerContextLivesUntilStop(t *testing.T) {
	h := loomsignal.NewHandler(context.Background())

	select {
	case <-h.Context().Done():
		t.Fatal("context canceled without a signal or Stop")
	default:
	}

	h.Stop()
	select {
	case <-h.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("Stop did not cancel the context")
	}
}

func TestHandlerStopIsIdempotent(t *testing.T) {
	h := loomsignal.NewHandler(context.Background())
	h.Stop()
	assert.NotPanics(t, h.Stop)
}

func TestHandlerInheritsParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	h := loomsignal.NewHandler(parent)
	defer h.Stop()

	cancel()
	select {
	case <-h.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("parent cancellation did not propagate")
	}
}

func TestHandlerCancelsOnSignal(t *testing.T) {
	h := loomsignal.NewHandler(context.Background())
	defer h.Stop()

	// Send ourselves the signal the handler listens for.
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-h.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("SIGTERM did not cancel the context")
	}
}
