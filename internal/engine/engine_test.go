package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomctl/loom/internal/constants"
	"github.com/loomctl/loom/internal/domain"
	"github.com/loomctl/loom/internal/effect"
	"github.com/loomctl/loom/internal/reducer"
)

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e := New(domain.NewStateTree(), reducer.NewRegistry(reducer.DefaultCaps()), zerolog.Nop(), opts)
	t.Cleanup(e.Close)
	return e
}

func TestEngineDispatchAndSnapshot(t *testing.T) {
	e := newTestEngine(t, Options{})
	e.Start()

	res, err := e.Dispatch(context.Background(),
		domain.MustAction(domain.ActionOpenProject, domain.OpenProjectPayload{Path: "/repo/a"}))
	require.NoError(t, err)
	require.NoError(t, res.Err)

	state, version := e.Snapshot()
	assert.Equal(t, uint64(1), version)
	require.Len(t, state.Projects, 1)
	assert.Equal(t, "/repo/a", state.Projects[0].Path)
}

func TestEngineEffectCompletionFeedsBack(t *testing.T) {
	e := newTestEngine(t, Options{})
	e.RegisterExecutor(domain.EffectEmitNotification, effect.NotifyExecutor{})

	// CreateContainer resolves instantly to a successful transition, the way
	// a container runtime would report back.
	e.RegisterExecutor(domain.EffectCreateContainer, effect.ExecutorFunc(
		func(_ context.Context, eff domain.Effect) ([]domain.Action, error) {
			p, err := domain.DecodeEffectPayload[domain.CreateContainerPayload](eff)
			if err != nil {
				return nil, err
			}
			return []domain.Action{
				domain.MustAction(domain.ActionServiceTransitioned, domain.ServiceTransitionedPayload{
					ServiceID: p.ServiceID,
					From:      constants.ServiceStatusCreating,
					To:        constants.ServiceStatusStopped,
				}),
			}, nil
		}))
	e.Start()

	res, err := e.Dispatch(context.Background(),
		domain.MustAction(domain.ActionCreateService, domain.CreateServicePayload{
			ServiceID: "postgres",
			Type:      constants.ServiceTypeDatabase,
		}))
	require.NoError(t, err)
	require.NoError(t, res.Err)

	// The completion action arrives asynchronously through the runner.
	require.Eventually(t, func() bool {
		state, _ := e.Snapshot()
		rec, ok := state.DockerServices["postgres"]
		return ok && rec.Status == constants.ServiceStatusStopped
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngineSubscribeSeesCommits(t *testing.T) {
	e := newTestEngine(t, Options{HubBuffer: 4})
	e.Start()

	snapshots, cancel := e.Subscribe()
	defer cancel()

	_, err := e.Dispatch(context.Background(),
		domain.MustAction(domain.ActionOpenProject, domain.OpenProjectPayload{Path: "/repo/a"}))
	require.NoError(t, err)

	select {
	case snap := <-snapshots:
		assert.Equal(t, uint64(1), snap.Version)
		assert.Equal(t, domain.ActionOpenProject, snap.Action.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}
}
