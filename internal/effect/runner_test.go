package effect

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomctl/loom/internal/domain"
)

// sink collects dispatched completion actions.
type sink struct {
	mu      sync.Mutex
	actions []domain.Action
	arrived chan domain.Action
}

func newSink() *sink {
	return &sink{arrived: make(chan domain.Action, 64)}
}

func (s *sink) dispatch(_ context.Context, a domain.Action) error {
	s.mu.Lock()
	s.actions = append(s.actions, a)
	s.mu.Unlock()
	s.arrived <- a
	return nil
}

func (s *sink) wait(t *testing.T) domain.Action {
	t.Helper()
	select {
	case a := <-s.arrived:
		return a
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion action")
		return domain.Action{}
	}
}

func testEffect(id, key string) domain.Effect {
	return domain.NewEffect(id, domain.EffectStartContainer, key, domain.StartContainerPayload{
		ServiceID: "pg", ContainerName: "loom-pg", RequestedPort: 5432,
	})
}

func TestRunnerDispatchesCompletions(t *testing.T) {
	s := newSink()
	r := NewRunner(s.dispatch, zerolog.Nop())
	t.Cleanup(r.Close)

	r.Register(domain.EffectStartContainer, ExecutorFunc(
		func(_ context.Context, _ domain.Effect) ([]domain.Action, error) {
			return []domain.Action{domain.MustAction(domain.ActionClearNotifications, nil)}, nil
		}))

	r.Schedule(domain.Action{}, []domain.Effect{testEffect("a/0", "container:loom-pg")})

	got := s.wait(t)
	assert.Equal(t, domain.ActionClearNotifications, got.Type)
}

func TestRunnerMissingExecutor(t *testing.T) {
	s := newSink()
	r := NewRunner(s.dispatch, zerolog.Nop())
	t.Cleanup(r.Close)

	r.Schedule(domain.Action{}, []domain.Effect{testEffect("a/0", "container:loom-pg")})

	got := s.wait(t)
	require.Equal(t, domain.ActionEffectFailed, got.Type)
	p, err := domain.DecodePayload[domain.EffectFailedPayload](got)
	require.NoError(t, err)
	assert.Contains(t, p.Reason, "no executor for effect type")
}

func TestRunnerPanicIsolation(t *testing.T) {
	s := newSink()
	r := NewRunner(s.dispatch, zerolog.Nop())
	t.Cleanup(r.Close)

	r.Register(domain.EffectStartContainer, ExecutorFunc(
		func(_ context.Context, _ domain.Effect) ([]domain.Action, error) {
			panic("executor exploded")
		}))

	r.Schedule(domain.Action{}, []domain.Effect{testEffect("a/0", "container:loom-pg")})

	got := s.wait(t)
	require.Equal(t, domain.ActionEffectFailed, got.Type)
	p, err := domain.DecodePayload[domain.EffectFailedPayload](got)
	require.NoError(t, err)
	assert.Contains(t, p.Reason, "executor exploded")

	// The runner survives and keeps executing.
	r.Register(domain.EffectStopContainer, ExecutorFunc(
		func(_ context.Context, _ domain.Effect) ([]domain.Action, error) {
			return []domain.Action{domain.MustAction(domain.ActionClearNotifications, nil)}, nil
		}))
	r.Schedule(domain.Action{}, []domain.Effect{
		domain.NewEffect("b/0", domain.EffectStopContainer, "container:loom-pg", domain.StopContainerPayload{}),
	})
	assert.Equal(t, domain.ActionClearNotifications, s.wait(t).Type)
}

func TestRunnerBusyResourceKey(t *testing.T) {
	s := newSink()
	r := NewRunner(s.dispatch, zerolog.Nop())
	t.Cleanup(r.Close)

	release := make(chan struct{})
	started := make(chan struct{})
	r.Register(domain.EffectStartContainer, ExecutorFunc(
		func(ctx context.Context, _ domain.Effect) ([]domain.Action, error) {
			close(started)
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil, nil
		}))

	r.Schedule(domain.Action{}, []domain.Effect{testEffect("a/0", "container:loom-pg")})
	<-started

	// Second effect for the same key without the cancel flag.
	r.Schedule(domain.Action{}, []domain.Effect{testEffect("b/0", "container:loom-pg")})

	got := s.wait(t)
	require.Equal(t, domain.ActionEffectFailed, got.Type)
	p, err := domain.DecodePayload[domain.EffectFailedPayload](got)
	require.NoError(t, err)
	assert.Contains(t, p.Reason, "in flight")
	close(release)
}

func TestRunnerCancelsOpposingEffect(t *testing.T) {
	s := newSink()
	r := NewRunner(s.dispatch, zerolog.Nop())
	t.Cleanup(r.Close)

	started := make(chan struct{})
	var canceled atomic.Bool
	r.Register(domain.EffectStartContainer, ExecutorFunc(
		func(ctx context.Context, _ domain.Effect) ([]domain.Action, error) {
			close(started)
			<-ctx.Done()
			canceled.Store(true)
			return nil, ctx.Err()
		}))
	r.Register(domain.EffectStopContainer, ExecutorFunc(
		func(_ context.Context, _ domain.Effect) ([]domain.Action, error) {
			return []domain.Action{domain.MustAction(domain.ActionClearNotifications, nil)}, nil
		}))

	r.Schedule(domain.Action{}, []domain.Effect{testEffect("a/0", "container:loom-pg")})
	<-started

	stop := domain.NewEffect("b/0", domain.EffectStopContainer, "container:loom-pg",
		domain.StopContainerPayload{ServiceID: "pg", ContainerName: "loom-pg"}).WithCancel()
	r.Schedule(domain.Action{}, []domain.Effect{stop})

	// Two completions arrive: the canceled start's failure and the stop's
	// success, in that order per resource key.
	first := s.wait(t)
	second := s.wait(t)
	assert.Equal(t, domain.ActionEffectFailed, first.Type)
	assert.Equal(t, domain.ActionClearNotifications, second.Type)
	assert.True(t, canceled.Load())
}

func TestRunnerBoundedParallelism(t *testing.T) {
	s := newSink()
	r := NewRunner(s.dispatch, zerolog.Nop(), WithParallelism(2))
	t.Cleanup(r.Close)

	var running, peak atomic.Int32
	block := make(chan struct{})
	r.Register(domain.EffectStartContainer, ExecutorFunc(
		func(_ context.Context, _ domain.Effect) ([]domain.Action, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-block
			running.Add(-1)
			return nil, nil
		}))

	effects := make([]domain.Effect, 0, 5)
	for _, key := range []string{"k1", "k2", "k3", "k4", "k5"} {
		effects = append(effects, testEffect(key+"/0", key))
	}
	r.Schedule(domain.Action{}, effects)

	// Give the pool time to saturate, then release everything.
	time.Sleep(100 * time.Millisecond)
	close(block)

	require.Eventually(t, func() bool { return running.Load() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.LessOrEqual(t, peak.Load(), int32(2), "no more than two effects at once")
}

func TestRunnerTimeout(t *testing.T) {
	s := newSink()
	r := NewRunner(s.dispatch, zerolog.Nop(), WithTimeout(50*time.Millisecond))
	t.Cleanup(r.Close)

	r.Register(domain.EffectStartContainer, ExecutorFunc(
		func(ctx context.Context, _ domain.Effect) ([]domain.Action, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}))

	r.Schedule(domain.Action{}, []domain.Effect{testEffect("a/0", "container:loom-pg")})

	got := s.wait(t)
	require.Equal(t, domain.ActionEffectFailed, got.Type)
	p, err := domain.DecodePayload[domain.EffectFailedPayload](got)
	require.NoError(t, err)
	assert.Contains(t, p.Reason, context.DeadlineExceeded.Error())
}

func TestNotifyExecutor(t *testing.T) {
	eff := domain.NewEffect("a/0", domain.EffectEmitNotification, "a/0",
		domain.EmitNotificationPayload{Message: "service pg running", Level: "success"})

	actions, err := NotifyExecutor{}.Execute(context.Background(), eff)

	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, domain.ActionAddNotification, actions[0].Type)
	p, err := domain.DecodePayload[domain.AddNotificationPayload](actions[0])
	require.NoError(t, err)
	assert.Equal(t, "service pg running", p.Message)
}
