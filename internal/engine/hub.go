package engine

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/loomctl/loom/internal/domain"
)

// Snapshot is one committed state version. State is shared read-only data;
// subscribers must never mutate it.
type Snapshot struct {
	Version uint64
	State   *domain.StateTree
	Action  domain.Action
}

// Hub fans committed snapshots out to subscribers. Each subscriber gets its
// own buffered channel and sees versions in commit order. A subscriber that
// stops draining has its oldest pending snapshot dropped rather than
// stalling the writer; the latest version always arrives eventually.
type Hub struct {
	mu      sync.Mutex
	subs    map[string]chan Snapshot
	buffer  int
	metrics Metrics
	logger  zerolog.Logger
}

// HubOption customizes construction.
type HubOption func(*Hub)

// WithHubBuffer overrides the per-subscriber channel capacity.
func WithHubBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithHubMetrics attaches a metrics sink.
func WithHubMetrics(m Metrics) HubOption {
	return func(h *Hub) { h.metrics = m }
}

// NewHub builds an empty hub.
func NewHub(logger zerolog.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		subs:    make(map[string]chan Snapshot),
		buffer:  16,
		metrics: NoopMetrics{},
		logger:  logger.With().Str("component", "hub").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a new subscriber. The cancel func unregisters it and
// closes its channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan Snapshot, func()) {
	id := uuid.NewString()
	ch := make(chan Snapshot, h.buffer)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber without blocking the
// caller. Delivery order per subscriber matches publish order.
func (h *Hub) Publish(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		for {
			select {
			case ch <- s:
			default:
				// Buffer full: evict the oldest snapshot and retry so the
				// subscriber converges on the newest state. The subscriber
				// may drain between the failed send and the evict; retry the
				// send either way so the newest snapshot is never the one
				// lost. Publish is the only sender, so this converges.
				select {
				case <-ch:
					h.metrics.SnapshotDropped()
					h.logger.Debug().Str("subscriber", id).Msg("slow subscriber, dropped oldest snapshot")
				default:
				}
				continue
			}
			break
		}
	}
}

// Len reports the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
