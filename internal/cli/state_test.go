package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomctl/loom/internal/domain"
	"github.com/loomctl/loom/internal/persist"
)

func TestPrintStateRendersSnapshot(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "state.yaml")
	state := domain.NewStateTree()
	state.RecentProjects = append(state.RecentProjects, domain.RecentProject{
		Path:     "/home/dev/acme",
		OpenedAt: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC),
	})
	store := persist.NewStore(path, zerolog.Nop())
	require.NoError(t, store.Save(context.Background(), state))

	var out bytes.Buffer
	cmd := &cobra.Command{Use: "state"}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())

	require.NoError(t, printState(cmd, &GlobalFlags{StatePath: path}))
	assert.Contains(t, out.String(), "/home/dev/acme")
	assert.Contains(t, out.String(), "recent_projects")
}

func TestPrintStateMissingSnapshotStartsFresh(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	cmd := &cobra.Command{Use: "state"}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())

	flags := &GlobalFlags{StatePath: filepath.Join(t.TempDir(), "state.yaml")}
	require.NoError(t, printState(cmd, flags))
	assert.Contains(t, out.String(), "projects: []")
}
