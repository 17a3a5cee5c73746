package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/loomctl/loom/internal/domain"
	"github.com/loomctl/loom/internal/effect"
	"github.com/loomctl/loom/internal/reducer"
)

// Engine is the in-process client surface: one dispatcher, one hub, one
// effect runner, wired so completion actions feed back into the dispatcher.
// Callers register executors for the effect types they can resolve, then
// Start; everything else goes through Dispatch/Snapshot/Subscribe.
type Engine struct {
	dispatcher *Dispatcher
	hub        *Hub
	runner     *effect.Runner
}

// Options bundles the tunables the config layer provides.
type Options struct {
	// QueueSize is the dispatcher's pending-action queue capacity.
	QueueSize int

	// HubBuffer is the per-subscriber snapshot channel capacity.
	HubBuffer int

	// Journal, when non-nil, records every committed action.
	Journal *Journal

	// Metrics receives engine counters; nil means NoopMetrics.
	Metrics Metrics

	// RunnerOptions customize effect execution (parallelism, timeout).
	RunnerOptions []effect.RunnerOption
}

// New assembles an engine around an initial state and reducer registry.
func New(initial *domain.StateTree, registry *reducer.Registry, logger zerolog.Logger, opts Options) *Engine {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}

	hubOpts := []HubOption{WithHubMetrics(metrics)}
	if opts.HubBuffer > 0 {
		hubOpts = append(hubOpts, WithHubBuffer(opts.HubBuffer))
	}
	hub := NewHub(logger, hubOpts...)

	e := &Engine{hub: hub}

	// Completion actions from effects re-enter the dispatcher. The runner is
	// constructed first with a closure over the engine so the dispatcher can
	// be handed the runner as its scheduler.
	runnerOpts := append([]effect.RunnerOption{effect.WithMetrics(metrics)}, opts.RunnerOptions...)
	e.runner = effect.NewRunner(func(ctx context.Context, action domain.Action) error {
		_, err := e.dispatcher.DispatchWait(ctx, action)
		return err
	}, logger, runnerOpts...)

	dispatcherOpts := []DispatcherOption{
		WithScheduler(e.runner),
		WithMetrics(metrics),
	}
	if opts.Journal != nil {
		dispatcherOpts = append(dispatcherOpts, WithJournal(opts.Journal))
	}
	if opts.QueueSize > 0 {
		dispatcherOpts = append(dispatcherOpts, WithQueueSize(opts.QueueSize))
	}
	e.dispatcher = NewDispatcher(initial, registry, hub, logger, dispatcherOpts...)

	return e
}

// RegisterExecutor binds an executor to an effect type. Must be called
// before Start.
func (e *Engine) RegisterExecutor(t domain.EffectType, exec effect.Executor) {
	e.runner.Register(t, exec)
}

// Start launches the dispatcher loop.
func (e *Engine) Start() {
	e.dispatcher.Start()
}

// Close stops intake, drains the queue, and waits for in-flight effects.
// Effects finishing during shutdown have their completions dropped; the next
// startup reconciles external state via discovery.
func (e *Engine) Close() {
	e.dispatcher.Close()
	e.runner.Close()
}

// Dispatch submits an action and waits for its commit or rejection.
func (e *Engine) Dispatch(ctx context.Context, action domain.Action) (Result, error) {
	return e.dispatcher.DispatchWait(ctx, action)
}

// Snapshot returns the latest committed state and its version.
func (e *Engine) Snapshot() (*domain.StateTree, uint64) {
	return e.dispatcher.State()
}

// Subscribe registers a snapshot consumer. The returned cancel func
// unsubscribes; calling it twice is safe.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	return e.hub.Subscribe()
}
