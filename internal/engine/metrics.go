package engine

import (
	"sync/atomic"
	"time"

	"github.com/loomctl/loom/internal/domain"
)

// Metrics collects engine counters. Implementations can forward these to
// monitoring systems; the engine itself only ever calls them, never reads.
type Metrics interface {
	// ActionApplied is called after an action commits a new state version.
	ActionApplied(t domain.ActionType, duration time.Duration)

	// ActionRejected is called when a reducer rejects an action.
	ActionRejected(t domain.ActionType)

	// EffectStarted is called when the runner begins executing an effect.
	EffectStarted(t domain.EffectType)

	// EffectFinished is called when an effect completes, succeeded or not.
	EffectFinished(t domain.EffectType, duration time.Duration, success bool)

	// SnapshotDropped is called when a slow subscriber loses a snapshot.
	SnapshotDropped()
}

// NoopMetrics is a no-op implementation of Metrics for default behavior.
type NoopMetrics struct{}

// Ensure NoopMetrics implements Metrics interface.
var _ Metrics = (*NoopMetrics)(nil)

// ActionApplied implements Metrics.
func (NoopMetrics) ActionApplied(domain.ActionType, time.Duration) {}

// ActionRejected implements Metrics.
func (NoopMetrics) ActionRejected(domain.ActionType) {}

// EffectStarted implements Metrics.
func (NoopMetrics) EffectStarted(domain.EffectType) {}

// EffectFinished implements Metrics.
func (NoopMetrics) EffectFinished(domain.EffectType, time.Duration, bool) {}

// SnapshotDropped implements Metrics.
func (NoopMetrics) SnapshotDropped() {}

// Counters is an in-process Metrics implementation backed by atomics, used
// by the status output and by tests.
type Counters struct {
	applied          atomic.Uint64
	rejected         atomic.Uint64
	effectsStarted   atomic.Uint64
	effectsSucceeded atomic.Uint64
	effectsFailed    atomic.Uint64
	snapshotsDropped atomic.Uint64
}

// Ensure Counters implements Metrics interface.
var _ Metrics = (*Counters)(nil)

// ActionApplied implements Metrics.
func (c *Counters) ActionApplied(domain.ActionType, time.Duration) { c.applied.Add(1) }

// ActionRejected implements Metrics.
func (c *Counters) ActionRejected(domain.ActionType) { c.rejected.Add(1) }

// EffectStarted implements Metrics.
func (c *Counters) EffectStarted(domain.EffectType) { c.effectsStarted.Add(1) }

// EffectFinished implements Metrics.
func (c *Counters) EffectFinished(_ domain.EffectType, _ time.Duration, success bool) {
	if success {
		c.effectsSucceeded.Add(1)
	} else {
		c.effectsFailed.Add(1)
	}
}

// SnapshotDropped implements Metrics.
func (c *Counters) SnapshotDropped() { c.snapshotsDropped.Add(1) }

// ActionsApplied returns the number of committed actions.
func (c *Counters) ActionsApplied() uint64 { return c.applied.Load() }

// ActionsRejected returns the number of rejected actions.
func (c *Counters) ActionsRejected() uint64 { return c.rejected.Load() }

// EffectsStarted returns the number of effects begun.
func (c *Counters) EffectsStarted() uint64 { return c.effectsStarted.Load() }

// EffectsSucceeded returns the number of effects that finished cleanly.
func (c *Counters) EffectsSucceeded() uint64 { return c.effectsSucceeded.Load() }

// EffectsFailed returns the number of effects that failed or panicked.
func (c *Counters) EffectsFailed() uint64 { return c.effectsFailed.Load() }

// SnapshotsDropped returns the number of snapshots lost to slow subscribers.
func (c *Counters) SnapshotsDropped() uint64 { return c.snapshotsDropped.Load() }
