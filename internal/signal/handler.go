// Package signal provides graceful shutdown handling for loom commands.
//
// Import rules:
//   - CAN import: std lib only
//   - MUST NOT import: internal packages (to avoid circular dependencies)
package signal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler cancels a context when SIGINT or SIGTERM is received. The engine
// and the dashboard both hang off that context, so one Ctrl+C unwinds the
// whole session: the dashboard exits, the dispatcher drains, and the
// snapshot save still runs because it uses a detached context.
type Handler struct {
	ctx      context.Context //nolint:containedctx // handler manages the context lifecycle
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	sigChan  chan os.Signal
}

// NewHandler starts listening for SIGINT and SIGTERM. Callers must Stop the
// handler when done.
func NewHandler(parent context.Context) *Handler {
	ctx, cancel := context.WithCancel(parent)
	h := &Handler{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		// Buffer of 1 so signal.Notify never drops a signal while the
		// handler goroutine is between receives.
		sigChan: make(chan os.Signal, 1),
	}

	signal.Notify(h.sigChan, syscall.SIGINT, syscall.SIGTERM)
	go h.listen()

	return h
}

// Context returns the cancellable context. Use it for every operation that
// should be interruptible.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Stop unregisters the signal listener and cancels the context. Safe to call
// more than once.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() {
		signal.Stop(h.sigChan)
		close(h.done)
		h.cancel()
	})
}

func (h *Handler) listen() {
	select {
	case <-h.ctx.Done():
	case <-h.done:
	case <-h.sigChan:
		h.cancel()
	}
}
