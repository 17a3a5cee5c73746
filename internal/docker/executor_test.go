package docker

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomctl/loom/internal/constants"
	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

func decodeTransition(t *testing.T, a domain.Action) domain.ServiceTransitionedPayload {
	t.Helper()
	require.Equal(t, domain.ActionServiceTransitioned, a.Type)
	p, err := domain.DecodePayload[domain.ServiceTransitionedPayload](a)
	require.NoError(t, err)
	return p
}

func TestContainerExecutorStop(t *testing.T) {
	t.Run("success completes stopping to stopped", func(t *testing.T) {
		f := newFakeRunner()
		e := NewContainerExecutor(NewClientWithRunner(f.run))

		eff := domain.NewEffect("a/0", domain.EffectStopContainer, "container:loom-pg",
			domain.StopContainerPayload{ServiceID: "pg", ContainerName: "loom-pg"})
		actions, err := e.Execute(context.Background(), eff)

		require.NoError(t, err)
		require.Len(t, actions, 1)
		p := decodeTransition(t, actions[0])
		assert.Equal(t, constants.ServiceStatusStopping, p.From)
		assert.Equal(t, constants.ServiceStatusStopped, p.To)
		assert.Empty(t, p.Error)
	})

	t.Run("failure carries the error in the completion", func(t *testing.T) {
		f := newFakeRunner()
		f.errs["stop"] = fmt.Errorf("docker stop failed: no such container: %w", loomerrors.ErrDockerOperation)
		e := NewContainerExecutor(NewClientWithRunner(f.run))

		eff := domain.NewEffect("a/0", domain.EffectStopContainer, "container:loom-pg",
			domain.StopContainerPayload{ServiceID: "pg", ContainerName: "loom-pg"})
		actions, err := e.Execute(context.Background(), eff)

		require.NoError(t, err, "domain failures are completions, not executor errors")
		p := decodeTransition(t, actions[0])
		assert.Contains(t, p.Error, "no such container")
	})
}

func TestContainerExecutorProbe(t *testing.T) {
	f := newFakeRunner()
	f.replies["inspect"] = "running"
	e := NewContainerExecutor(NewClientWithRunner(f.run))

	eff := domain.NewEffect("a/0", domain.EffectProbeContainers, "container-probe",
		domain.ProbeContainersPayload{
			ServiceIDs:     []string{"pg", "redis"},
			ContainerNames: []string{"loom-pg", "loom-redis"},
		})
	actions, err := e.Execute(context.Background(), eff)

	require.NoError(t, err)
	require.Len(t, actions, 2)
	for _, a := range actions {
		p := decodeTransition(t, a)
		assert.Equal(t, constants.ServiceStatusUnknown, p.From)
		assert.Equal(t, constants.ServiceStatusRunning, p.To)
	}
}

func TestContainerExecutorUnknownEffect(t *testing.T) {
	e := NewContainerExecutor(NewClientWithRunner(newFakeRunner().run))
	eff := domain.NewEffect("a/0", domain.EffectSpawnMcpServer, "mcp:wt-1", nil)

	_, err := e.Execute(context.Background(), eff)
	require.ErrorIs(t, err, loomerrors.ErrNoExecutor)
}
