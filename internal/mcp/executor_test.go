package mcp

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

func TestServerExecutorSpawnAndShutdown(t *testing.T) {
	dir := t.TempDir()
	c := NewController(zerolog.Nop(), WithCommand(fakeServer(t, "sleep 30")))
	exec := NewServerExecutor(c)

	spawn := domain.NewEffect("act-1/0", domain.EffectSpawnMcpServer, "mcp:wt-1",
		domain.SpawnMcpServerPayload{WorktreeID: "wt-1", WorktreePath: dir})
	actions, err := exec.Execute(context.Background(), spawn)
	require.NoError(t, err)
	require.Len(t, actions, 1)

	started, err := domain.DecodePayload[domain.McpServerStartedPayload](actions[0])
	require.NoError(t, err)
	assert.Equal(t, domain.ActionMcpServerStarted, actions[0].Type)
	assert.Equal(t, "wt-1", started.WorktreeID)
	assert.NotZero(t, started.Port)
	assert.True(t, c.Running("wt-1"))

	shutdown := domain.NewEffect("act-2/0", domain.EffectShutdownMcpServer, "mcp:wt-1",
		domain.ShutdownMcpServerPayload{WorktreeID: "wt-1"})
	actions, err = exec.Execute(context.Background(), shutdown)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, domain.ActionMcpServerStopped, actions[0].Type)
	assert.False(t, c.Running("wt-1"))
}

func TestServerExecutorSpawnFailureCompletesWithError(t *testing.T) {
	c := NewController(zerolog.Nop(), WithCommand("loom-definitely-not-installed"))
	exec := NewServerExecutor(c)

	spawn := domain.NewEffect("act-1/0", domain.EffectSpawnMcpServer, "mcp:wt-1",
		domain.SpawnMcpServerPayload{WorktreeID: "wt-1", WorktreePath: t.TempDir()})
	actions, err := exec.Execute(context.Background(), spawn)
	require.NoError(t, err)
	require.Len(t, actions, 1)

	started, err := domain.DecodePayload[domain.McpServerStartedPayload](actions[0])
	require.NoError(t, err)
	assert.Equal(t, domain.ActionMcpServerStarted, actions[0].Type)
	assert.Equal(t, "wt-1", started.WorktreeID)
	assert.NotEmpty(t, started.Error)
	assert.False(t, c.Running("wt-1"))
}

func TestServerExecutorShutdownUnknownWorktree(t *testing.T) {
	exec := NewServerExecutor(NewController(zerolog.Nop()))

	eff := domain.NewEffect("act-1/0", domain.EffectShutdownMcpServer, "mcp:wt-9",
		domain.ShutdownMcpServerPayload{WorktreeID: "wt-9"})
	actions, err := exec.Execute(context.Background(), eff)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, domain.ActionMcpServerStopped, actions[0].Type)
}

func TestServerExecutorRejectsForeignEffect(t *testing.T) {
	exec := NewServerExecutor(NewController(zerolog.Nop()))

	eff := domain.NewEffect("act-1/0", domain.EffectStopContainer, "svc-1",
		domain.StopContainerPayload{ServiceID: "svc-1"})
	_, err := exec.Execute(context.Background(), eff)
	require.ErrorIs(t, err, loomerrors.ErrNoExecutor)
}
