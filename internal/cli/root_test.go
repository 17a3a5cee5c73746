package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomctl/loom/internal/config"
	"github.com/loomctl/loom/internal/constants"
)

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		name string
		info BuildInfo
		want string
	}{
		{
			name: "full build info",
			info: BuildInfo{Version: "1.2.0", Commit: "abc1234", Date: "2026-03-01"},
			want: "1.2.0 (commit: abc1234, built: 2026-03-01)",
		},
		{
			name: "empty fields fall back",
			info: BuildInfo{},
			want: "dev (commit: none, built: unknown)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatVersion(tt.info))
		})
	}
}

func TestRootCommandShowsHelp(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LOOM_HOME", t.TempDir())

	var out bytes.Buffer
	cmd := newRootCmd(&GlobalFlags{}, BuildInfo{Version: "0.1.0"})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "loom")
	assert.Contains(t, out.String(), "run")
	assert.Contains(t, out.String(), "state")
	assert.Contains(t, out.String(), "replay")
}

func TestRootCommandRejectsUnknownSubcommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LOOM_HOME", t.TempDir())

	cmd := newRootCmd(&GlobalFlags{}, BuildInfo{})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"weave"})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestReducerCapsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Caps.Notifications = 7
	cfg.Caps.McpLog = 11
	cfg.Caps.McpPayloadMaxBytes = 2048
	cfg.Caps.RecentProjects = 3
	cfg.Services.DatabasePort = 5533
	cfg.Services.CachePort = 6480
	cfg.Services.BrokerPort = 5772

	caps := reducerCaps(cfg)
	assert.Equal(t, 7, caps.NotificationCap)
	assert.Equal(t, 11, caps.McpLogCap)
	assert.Equal(t, 2048, caps.McpPayloadMaxBytes)
	assert.Equal(t, 3, caps.RecentProjectsCap)
	assert.Equal(t, 5533, caps.DefaultPorts[constants.ServiceTypeDatabase])
	assert.Equal(t, 6480, caps.DefaultPorts[constants.ServiceTypeCache])
	assert.Equal(t, 5772, caps.DefaultPorts[constants.ServiceTypeBroker])
	assert.Equal(t, 0, caps.DefaultPorts[constants.ServiceTypeOther])
}
