package engine

import (
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomctl/loom/internal/domain"
)

func TestHubSubscribeAndCancel(t *testing.T) {
	h := NewHub(zerolog.Nop())

	ch, cancel := h.Subscribe()
	assert.Equal(t, 1, h.Len())

	h.Publish(Snapshot{Version: 1, State: domain.NewStateTree()})
	snap := <-ch
	assert.Equal(t, uint64(1), snap.Version)

	cancel()
	assert.Equal(t, 0, h.Len())

	_, open := <-ch
	assert.False(t, open, "cancel closes the channel")

	// Cancel twice is safe.
	cancel()
}

func TestHubPerSubscriberFIFO(t *testing.T) {
	h := NewHub(zerolog.Nop(), WithHubBuffer(8))
	ch, cancel := h.Subscribe()
	defer cancel()

	for v := uint64(1); v <= 5; v++ {
		h.Publish(Snapshot{Version: v})
	}

	for want := uint64(1); want <= 5; want++ {
		assert.Equal(t, want, (<-ch).Version)
	}
}

func TestHubSlowSubscriberDropsOldest(t *testing.T) {
	counters := &Counters{}
	h := NewHub(zerolog.Nop(), WithHubBuffer(2), WithHubMetrics(counters))
	ch, cancel := h.Subscribe()
	defer cancel()

	// Nobody reads while five versions are published into a buffer of two.
	for v := uint64(1); v <= 5; v++ {
		h.Publish(Snapshot{Version: v})
	}

	first := <-ch
	second := <-ch
	assert.Equal(t, uint64(4), first.Version, "oldest versions were dropped")
	assert.Equal(t, uint64(5), second.Version, "newest version always arrives")
	assert.Equal(t, uint64(3), counters.SnapshotsDropped())
}

func TestHubConcurrentDrainKeepsNewest(t *testing.T) {
	h := NewHub(zerolog.Nop(), WithHubBuffer(1))
	ch, cancel := h.Subscribe()

	// A subscriber draining concurrently with Publish can empty the buffer
	// between a failed send and the evict; the newest version must still be
	// enqueued, never silently skipped.
	var got atomic.Uint64
	done := make(chan struct{})
	go func() {
		defer close(done)
		for s := range ch {
			got.Store(s.Version)
		}
	}()

	const last = uint64(100000)
	for v := uint64(1); v <= last; v++ {
		h.Publish(Snapshot{Version: v})
	}
	cancel()
	<-done

	assert.Equal(t, last, got.Load(), "last published version must reach the subscriber")
}

func TestHubIndependentSubscribers(t *testing.T) {
	h := NewHub(zerolog.Nop(), WithHubBuffer(2))
	slow, cancelSlow := h.Subscribe()
	fast, cancelFast := h.Subscribe()
	defer cancelSlow()
	defer cancelFast()

	for v := uint64(1); v <= 4; v++ {
		h.Publish(Snapshot{Version: v})
		// The fast subscriber keeps up.
		require.Equal(t, v, (<-fast).Version)
	}

	// The slow one lost the head of its queue but not ordering.
	assert.Equal(t, uint64(3), (<-slow).Version)
	assert.Equal(t, uint64(4), (<-slow).Version)
}
