// Package engine hosts the serialized state core: a single-writer dispatcher
// that applies actions through the reducer registry, a broadcast hub fanning
// committed versions out to subscribers, and an append-only action journal.
//
// All state writes flow through one goroutine. Concurrency never touches the
// StateTree itself; it lives in effect execution and subscriber fan-out.
//
// Import rules:
//   - CAN import: internal/reducer, internal/domain, internal/errors,
//     internal/clock, std lib
//   - MUST NOT import: internal/cli, internal/tui, internal/docker
package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/loomctl/loom/internal/clock"
	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
	"github.com/loomctl/loom/internal/reducer"
)

// Result reports the outcome of one dispatched action.
type Result struct {
	// Action is the submitted action with ID and Time stamped.
	Action domain.Action

	// Version is the state version the action produced. Unchanged on error.
	Version uint64

	// Err is the reducer rejection, nil when the action committed. A
	// rejected action leaves state untouched and is not journaled.
	Err error
}

// Scheduler receives the effects a committed action requested. Dispatch
// returns before any effect runs.
type Scheduler interface {
	Schedule(action domain.Action, effects []domain.Effect)
}

// noopScheduler drops effects; used when no runner is attached (replay).
type noopScheduler struct{}

func (noopScheduler) Schedule(domain.Action, []domain.Effect) {}

// Dispatcher is the single writer. Actions are stamped and queued at
// Dispatch; a dedicated goroutine applies them strictly in submission order.
// The writer runs from Start until Close and is not stopped by context
// cancellation, so queued submitters always receive a result.
type Dispatcher struct {
	registry  *reducer.Registry
	hub       *Hub
	journal   *Journal
	scheduler Scheduler
	metrics   Metrics
	logger    zerolog.Logger
	clk       clock.Clock

	queue chan pending

	// sendMu is held for reading while enqueuing and for writing by Close,
	// which is what makes closing the queue safe against in-flight senders.
	sendMu sync.RWMutex
	closed bool

	stateMu sync.Mutex
	state   *domain.StateTree
	version uint64

	wg sync.WaitGroup
}

type pending struct {
	action domain.Action
	done   chan Result
}

// DispatcherOption customizes construction.
type DispatcherOption func(*Dispatcher)

// WithJournal attaches an action journal; every committed action is appended.
func WithJournal(j *Journal) DispatcherOption {
	return func(d *Dispatcher) { d.journal = j }
}

// WithScheduler attaches the effect runner.
func WithScheduler(s Scheduler) DispatcherOption {
	return func(d *Dispatcher) { d.scheduler = s }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithClock overrides the wall clock, for tests.
func WithClock(c clock.Clock) DispatcherOption {
	return func(d *Dispatcher) { d.clk = c }
}

// WithQueueSize overrides the pending-action queue capacity.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) { d.queue = make(chan pending, n) }
}

// NewDispatcher builds a dispatcher around an initial state. Call Start to
// begin processing.
func NewDispatcher(initial *domain.StateTree, registry *reducer.Registry, hub *Hub, logger zerolog.Logger, opts ...DispatcherOption) *Dispatcher {
	if initial == nil {
		initial = domain.NewStateTree()
	}
	d := &Dispatcher{
		registry:  registry,
		hub:       hub,
		scheduler: noopScheduler{},
		metrics:   NoopMetrics{},
		logger:    logger.With().Str("component", "dispatcher").Logger(),
		clk:       clock.RealClock{},
		queue:     make(chan pending, 256),
		state:     initial,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the writer goroutine.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.loop()
}

// Close stops accepting actions, waits for queued ones to finish, and
// returns. Safe to call more than once.
func (d *Dispatcher) Close() {
	d.sendMu.Lock()
	alreadyClosed := d.closed
	d.closed = true
	if !alreadyClosed {
		close(d.queue)
	}
	d.sendMu.Unlock()

	d.wg.Wait()
}

// Dispatch stamps the action and enqueues it. The returned channel receives
// exactly one Result once the action has been applied or rejected.
func (d *Dispatcher) Dispatch(ctx context.Context, action domain.Action) (domain.Action, <-chan Result, error) {
	action.ID = uuid.NewString()
	action.Time = d.clk.Now().UTC()

	done := make(chan Result, 1)

	d.sendMu.RLock()
	defer d.sendMu.RUnlock()
	if d.closed {
		return domain.Action{}, nil, loomerrors.ErrDispatcherClosed
	}

	select {
	case d.queue <- pending{action: action, done: done}:
		return action, done, nil
	case <-ctx.Done():
		return domain.Action{}, nil, ctx.Err()
	}
}

// DispatchWait dispatches and blocks for the result.
func (d *Dispatcher) DispatchWait(ctx context.Context, action domain.Action) (Result, error) {
	_, done, err := d.Dispatch(ctx, action)
	if err != nil {
		return Result{}, err
	}
	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// State returns the latest committed version. The tree is shared and must be
// treated as read-only.
func (d *Dispatcher) State() (*domain.StateTree, uint64) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.state, d.version
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for p := range d.queue {
		d.apply(p)
	}
}

// apply runs one action through the registry and commits the result. This is
// the only place d.state is ever written.
func (d *Dispatcher) apply(p pending) {
	start := d.clk.Now()

	d.stateMu.Lock()
	current := d.state
	version := d.version
	d.stateMu.Unlock()

	next, effects, err := d.registry.Apply(current, p.action)
	if err != nil {
		d.metrics.ActionRejected(p.action.Type)
		d.logger.Debug().
			Str("action_id", p.action.ID).
			Str("action_type", string(p.action.Type)).
			Err(err).
			Msg("action rejected")
		p.done <- Result{Action: p.action, Version: version, Err: err}
		return
	}

	d.stateMu.Lock()
	d.state = next
	d.version++
	version = d.version
	d.stateMu.Unlock()

	if d.journal != nil {
		if jerr := d.journal.Append(p.action); jerr != nil {
			d.logger.Warn().Err(jerr).Str("action_id", p.action.ID).Msg("journal append failed")
		}
	}

	d.metrics.ActionApplied(p.action.Type, d.clk.Now().Sub(start))
	d.logger.Debug().
		Str("action_id", p.action.ID).
		Str("action_type", string(p.action.Type)).
		Uint64("version", version).
		Int("effects", len(effects)).
		Msg("action committed")

	if d.hub != nil {
		d.hub.Publish(Snapshot{Version: version, State: next, Action: p.action})
	}
	if len(effects) > 0 {
		d.scheduler.Schedule(p.action, effects)
	}

	p.done <- Result{Action: p.action, Version: version}
}
