// Package effect executes the asynchronous side effects requested by
// reducers. The runner owns all engine concurrency: a bounded pool of
// executing effects, per-resource serialization, best-effort cancellation of
// opposing transitions, and panic isolation. Completions re-enter the engine
// as ordinary actions; the runner never touches the StateTree.
//
// Import rules:
//   - CAN import: internal/domain, internal/errors, internal/clock, std lib
//   - MUST NOT import: internal/engine, internal/reducer, internal/cli
package effect

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/loomctl/loom/internal/clock"
	"github.com/loomctl/loom/internal/constants"
	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

// Executor performs one kind of effect against the outside world. Execute
// returns the completion actions to dispatch; a returned error (or a panic)
// becomes an EffectFailed action instead.
//
// Executors representing domain failures (a container that refused to start)
// should return their domain's completion action carrying the error, not an
// error from Execute; EffectFailed is for infrastructure-level failures.
type Executor interface {
	Execute(ctx context.Context, eff domain.Effect) ([]domain.Action, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, eff domain.Effect) ([]domain.Action, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, eff domain.Effect) ([]domain.Action, error) {
	return f(ctx, eff)
}

// Dispatch feeds a completion action back into the engine.
type Dispatch func(ctx context.Context, action domain.Action) error

// Metrics is the runner's view of the engine metrics sink.
type Metrics interface {
	EffectStarted(t domain.EffectType)
	EffectFinished(t domain.EffectType, duration time.Duration, success bool)
}

type noopMetrics struct{}

func (noopMetrics) EffectStarted(domain.EffectType)                       {}
func (noopMetrics) EffectFinished(domain.EffectType, time.Duration, bool) {}

// inflight tracks one executing effect per resource key.
type inflight struct {
	effectID string
	cancel   context.CancelFunc
	done     chan struct{}
}

// Runner schedules and executes effects. At most `parallelism` effects run
// at once; additional ones wait for a slot rather than being rejected. Per
// resource key only one effect may be in flight: a second one fails with
// ErrResourceBusy unless it carries the Cancels flag, in which case the
// in-flight effect is canceled and awaited first.
type Runner struct {
	executors map[domain.EffectType]Executor
	dispatch  Dispatch
	sem       *semaphore.Weighted
	timeout   time.Duration
	metrics   Metrics
	logger    zerolog.Logger
	clk       clock.Clock

	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu       sync.Mutex
	byKey    map[string]*inflight
	shutdown bool

	wg sync.WaitGroup
}

// RunnerOption customizes construction.
type RunnerOption func(*Runner)

// WithParallelism bounds the number of concurrently executing effects.
func WithParallelism(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithTimeout bounds the execution time of a single effect.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithClock overrides the wall clock, for tests.
func WithClock(c clock.Clock) RunnerOption {
	return func(r *Runner) { r.clk = c }
}

// NewRunner builds a runner that feeds completions through dispatch.
func NewRunner(dispatch Dispatch, logger zerolog.Logger, opts ...RunnerOption) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		executors:  make(map[domain.EffectType]Executor),
		dispatch:   dispatch,
		sem:        semaphore.NewWeighted(int64(constants.DefaultEffectParallelism)),
		timeout:    constants.DefaultEffectTimeout,
		metrics:    noopMetrics{},
		logger:     logger.With().Str("component", "effect_runner").Logger(),
		clk:        clock.RealClock{},
		baseCtx:    ctx,
		cancelBase: cancel,
		byKey:      make(map[string]*inflight),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds an executor to an effect type. Not safe to call after
// scheduling has begun.
func (r *Runner) Register(t domain.EffectType, exec Executor) {
	r.executors[t] = exec
}

// Schedule launches every effect of a committed action. It never blocks the
// caller; admission control happens inside the per-effect goroutine.
func (r *Runner) Schedule(_ domain.Action, effects []domain.Effect) {
	for _, eff := range effects {
		r.mu.Lock()
		if r.shutdown {
			r.mu.Unlock()
			r.logger.Warn().Str("effect_id", eff.ID).Msg("runner closed, effect dropped")
			return
		}
		r.wg.Add(1)
		r.mu.Unlock()

		go r.run(eff)
	}
}

// Close cancels every in-flight effect and waits for all goroutines to
// finish. Completions that lose the race are handled by the reducers'
// stale-completion rules.
func (r *Runner) Close() {
	r.mu.Lock()
	r.shutdown = true
	r.mu.Unlock()

	r.cancelBase()
	r.wg.Wait()
}

func (r *Runner) run(eff domain.Effect) {
	defer r.wg.Done()

	exec, ok := r.executors[eff.Type]
	if !ok {
		r.fail(eff, fmt.Errorf("%w: %s", loomerrors.ErrNoExecutor, eff.Type))
		return
	}

	if err := r.admit(eff); err != nil {
		r.fail(eff, err)
		return
	}

	if err := r.sem.Acquire(r.baseCtx, 1); err != nil {
		r.unregister(eff.ResourceKey)
		r.fail(eff, err)
		return
	}
	defer r.sem.Release(1)

	ctx, cancel := context.WithTimeout(r.baseCtx, r.timeout)
	r.arm(eff.ResourceKey, cancel)
	defer r.unregister(eff.ResourceKey)
	defer cancel()

	start := r.clk.Now()
	r.metrics.EffectStarted(eff.Type)
	r.logger.Debug().
		Str("effect_id", eff.ID).
		Str("effect_type", string(eff.Type)).
		Str("resource_key", eff.ResourceKey).
		Msg("effect started")

	actions, err := r.execute(ctx, exec, eff)
	r.metrics.EffectFinished(eff.Type, r.clk.Now().Sub(start), err == nil)
	if err != nil {
		r.fail(eff, err)
		return
	}

	for _, action := range actions {
		if derr := r.dispatch(r.baseCtx, action); derr != nil {
			r.logger.Warn().Err(derr).
				Str("effect_id", eff.ID).
				Str("action_type", string(action.Type)).
				Msg("completion dispatch failed")
		}
	}
}

// execute invokes the executor with panic isolation. A panicking executor
// brings down its own effect, never the engine.
func (r *Runner) execute(ctx context.Context, exec Executor, eff domain.Effect) (actions []domain.Action, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Str("effect_id", eff.ID).
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("executor panicked")
			actions = nil
			err = fmt.Errorf("%w: %v", loomerrors.ErrEffectPanic, rec)
		}
	}()
	return exec.Execute(ctx, eff)
}

// admit claims the effect's resource key. A busy key is an error unless the
// effect cancels its predecessor, in which case the predecessor is canceled
// and awaited before the claim.
func (r *Runner) admit(eff domain.Effect) error {
	for {
		r.mu.Lock()
		prev, busy := r.byKey[eff.ResourceKey]
		if !busy {
			r.byKey[eff.ResourceKey] = &inflight{effectID: eff.ID, done: make(chan struct{})}
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		if !eff.Cancels {
			return fmt.Errorf("%w: resource %s has effect %s in flight",
				loomerrors.ErrResourceBusy, eff.ResourceKey, prev.effectID)
		}

		r.logger.Debug().
			Str("effect_id", eff.ID).
			Str("cancels", prev.effectID).
			Msg("cancelling in-flight effect")
		r.mu.Lock()
		if prev.cancel != nil {
			prev.cancel()
		}
		r.mu.Unlock()

		select {
		case <-prev.done:
		case <-r.baseCtx.Done():
			return r.baseCtx.Err()
		}
	}
}

// arm records the cancel func once the effect's context exists, so an
// opposing effect can interrupt it.
func (r *Runner) arm(key string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.byKey[key]; ok {
		entry.cancel = cancel
	}
}

func (r *Runner) unregister(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.byKey[key]; ok {
		close(entry.done)
		delete(r.byKey, key)
	}
}

// fail reports a failed effect back into the engine as an EffectFailed
// action. Dispatch errors during shutdown are logged and dropped.
func (r *Runner) fail(eff domain.Effect, cause error) {
	r.logger.Warn().
		Str("effect_id", eff.ID).
		Str("effect_type", string(eff.Type)).
		Err(cause).
		Msg("effect failed")

	action := domain.MustAction(domain.ActionEffectFailed, domain.EffectFailedPayload{
		EffectID:    eff.ID,
		EffectType:  eff.Type,
		ResourceKey: eff.ResourceKey,
		Reason:      cause.Error(),
	})
	if err := r.dispatch(context.WithoutCancel(r.baseCtx), action); err != nil {
		r.logger.Warn().Err(err).Str("effect_id", eff.ID).Msg("failure dispatch failed")
	}
}
