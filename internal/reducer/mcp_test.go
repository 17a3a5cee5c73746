package reducer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomctl/loom/internal/constants"
	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

// openTree returns a tree with one open project and its main worktree active.
func openTree(t *testing.T, r *Registry) *domain.StateTree {
	t.Helper()
	s, _ := apply(t, r, domain.NewStateTree(), 1, domain.ActionOpenProject,
		domain.OpenProjectPayload{Path: "/repo/a"})
	return s
}

func TestStartMcpServer(t *testing.T) {
	r := NewRegistry(DefaultCaps())

	t.Run("requires an active worktree", func(t *testing.T) {
		_, _, err := r.Apply(domain.NewStateTree(), stamp(t, 1, domain.ActionStartMcpServer, nil))
		require.ErrorIs(t, err, loomerrors.ErrNoActiveWorktree)
	})

	t.Run("creates record in starting and emits spawn", func(t *testing.T) {
		s := openTree(t, r)
		wtID := s.Projects[0].Worktrees[0].ID

		s, effects := apply(t, r, s, 2, domain.ActionStartMcpServer, nil)

		require.NotNil(t, s.McpServer)
		assert.Equal(t, constants.McpStatusStarting, s.McpServer.Status)
		assert.Equal(t, wtID, s.McpServer.WorktreeID)
		require.Len(t, effects, 1)
		assert.Equal(t, domain.EffectSpawnMcpServer, effects[0].Type)
	})

	t.Run("double start is busy", func(t *testing.T) {
		s := openTree(t, r)
		s, _ = apply(t, r, s, 2, domain.ActionStartMcpServer, nil)
		_, _, err := r.Apply(s, stamp(t, 3, domain.ActionStartMcpServer, nil))
		require.ErrorIs(t, err, loomerrors.ErrResourceBusy)
	})

	t.Run("switching worktree shuts down previous server", func(t *testing.T) {
		s := openTree(t, r)
		pid := s.Projects[0].ID
		s, _ = apply(t, r, s, 2, domain.ActionAddWorktree,
			domain.AddWorktreePayload{ProjectID: pid, Path: "/repo/a-feature", Branch: "feature"})
		s, _ = apply(t, r, s, 3, domain.ActionStartMcpServer, nil)
		oldID := s.McpServer.WorktreeID

		s, _ = apply(t, r, s, 4, domain.ActionSelectWorktree, domain.SelectWorktreePayload{Index: 1})
		s, effects := apply(t, r, s, 5, domain.ActionStartMcpServer, nil)

		require.Len(t, effects, 2)
		assert.Equal(t, domain.EffectShutdownMcpServer, effects[0].Type)
		assert.Equal(t, domain.EffectSpawnMcpServer, effects[1].Type)
		assert.NotEqual(t, oldID, s.McpServer.WorktreeID)
	})
}

func TestMcpServerCompletions(t *testing.T) {
	r := NewRegistry(DefaultCaps())

	started := func(t *testing.T) (*domain.StateTree, string) {
		s := openTree(t, r)
		s, _ = apply(t, r, s, 2, domain.ActionStartMcpServer, nil)
		return s, s.McpServer.WorktreeID
	}

	t.Run("started commits port config and tools", func(t *testing.T) {
		s, wtID := started(t)
		s, effects := apply(t, r, s, 3, domain.ActionMcpServerStarted, domain.McpServerStartedPayload{
			WorktreeID: wtID, Port: 7821, ConfigPath: "/repo/a/.loom-mcp.json",
			Tools: []string{"read_file", "run_tests"},
		})

		assert.Equal(t, constants.McpStatusRunning, s.McpServer.Status)
		assert.Equal(t, 7821, s.McpServer.Port)
		assert.Equal(t, []string{"read_file", "run_tests"}, s.McpServer.AvailableTools)
		require.Len(t, effects, 1)
		assert.Equal(t, domain.EffectEmitNotification, effects[0].Type)
	})

	t.Run("failed spawn moves record to error", func(t *testing.T) {
		s, wtID := started(t)
		s, effects := apply(t, r, s, 3, domain.ActionMcpServerStarted, domain.McpServerStartedPayload{
			WorktreeID: wtID, Error: "binary not found in PATH",
		})

		assert.Equal(t, constants.McpStatusError, s.McpServer.Status)
		assert.Equal(t, "binary not found in PATH", s.McpServer.LastError)
		require.Len(t, effects, 1)
		require.Equal(t, domain.EffectEmitNotification, effects[0].Type)
		np, err := domain.DecodeEffectPayload[domain.EmitNotificationPayload](effects[0])
		require.NoError(t, err)
		assert.Equal(t, constants.NotificationError, np.Level)
	})

	t.Run("errored server can be restarted after stop", func(t *testing.T) {
		s, wtID := started(t)
		s, _ = apply(t, r, s, 3, domain.ActionMcpServerStarted,
			domain.McpServerStartedPayload{WorktreeID: wtID, Error: "spawn: exit status 1"})
		s, _ = apply(t, r, s, 4, domain.ActionStopMcpServer, nil)
		s, _ = apply(t, r, s, 5, domain.ActionMcpServerStopped,
			domain.McpServerStoppedPayload{WorktreeID: wtID})
		s, _ = apply(t, r, s, 6, domain.ActionStartMcpServer, nil)
		assert.Equal(t, constants.McpStatusStarting, s.McpServer.Status)
	})

	t.Run("started after stop is a no-op", func(t *testing.T) {
		s, wtID := started(t)
		s, _ = apply(t, r, s, 3, domain.ActionStopMcpServer, nil)
		require.Equal(t, constants.McpStatusStopped, s.McpServer.Status)

		s, effects := apply(t, r, s, 4, domain.ActionMcpServerStarted,
			domain.McpServerStartedPayload{WorktreeID: wtID, Port: 7821})

		assert.Empty(t, effects)
		assert.Equal(t, constants.McpStatusStopped, s.McpServer.Status)
	})

	t.Run("stopped destroys record", func(t *testing.T) {
		s, wtID := started(t)
		s, _ = apply(t, r, s, 3, domain.ActionStopMcpServer, nil)
		s, _ = apply(t, r, s, 4, domain.ActionMcpServerStopped,
			domain.McpServerStoppedPayload{WorktreeID: wtID})
		assert.Nil(t, s.McpServer)
	})

	t.Run("stopped for a different worktree is a no-op", func(t *testing.T) {
		s, _ := started(t)
		s, _ = apply(t, r, s, 3, domain.ActionMcpServerStopped,
			domain.McpServerStoppedPayload{WorktreeID: "wt-other"})
		assert.NotNil(t, s.McpServer)
	})
}

func TestAppendMcpLog(t *testing.T) {
	caps := DefaultCaps()
	caps.McpLogCap = 3
	caps.McpPayloadMaxBytes = 16
	r := NewRegistry(caps)

	running := func(t *testing.T) (*domain.StateTree, string) {
		s := openTree(t, r)
		s, _ = apply(t, r, s, 2, domain.ActionStartMcpServer, nil)
		wtID := s.McpServer.WorktreeID
		s, _ = apply(t, r, s, 3, domain.ActionMcpServerStarted,
			domain.McpServerStartedPayload{WorktreeID: wtID, Port: 7821})
		return s, wtID
	}

	t.Run("ring drops oldest beyond cap", func(t *testing.T) {
		s, wtID := running(t)
		for i := 0; i < 5; i++ {
			s, _ = apply(t, r, s, 10+i, domain.ActionAppendMcpLog, domain.AppendMcpLogPayload{
				WorktreeID: wtID, Direction: constants.McpLogIn,
				Method: "tools/call", ToolName: "read_file", Payload: "{}",
			})
		}
		require.Len(t, s.McpServer.LogEntries, 3)
	})

	t.Run("oversized payload is truncated", func(t *testing.T) {
		s, wtID := running(t)
		s, _ = apply(t, r, s, 10, domain.ActionAppendMcpLog, domain.AppendMcpLogPayload{
			WorktreeID: wtID, Direction: constants.McpLogOut,
			Method: "tools/call", Payload: strings.Repeat("x", 64),
		})

		entry := s.McpServer.LogEntries[len(s.McpServer.LogEntries)-1]
		assert.Contains(t, entry.Payload, "truncated")
		assert.Contains(t, entry.Payload, "64 bytes")
	})

	t.Run("log for a dead server is dropped", func(t *testing.T) {
		s := openTree(t, r)
		s, _ = apply(t, r, s, 2, domain.ActionAppendMcpLog, domain.AppendMcpLogPayload{
			WorktreeID: "wt-x", Direction: constants.McpLogIn, Method: "tools/call",
		})
		assert.Nil(t, s.McpServer)
	})
}
