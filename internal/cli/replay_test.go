package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomctl/loom/internal/constants"
	"github.com/loomctl/loom/internal/domain"
	"github.com/loomctl/loom/internal/engine"
)

// writeJournal records a short committed-action history the way the
// dispatcher would: ids and timestamps already stamped.
func writeJournal(t *testing.T, path string) {
	t.Helper()

	j, err := engine.OpenJournal(path)
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	actions := []domain.Action{
		domain.MustAction(domain.ActionOpenProject, domain.OpenProjectPayload{Path: "/home/dev/acme"}),
		domain.MustAction(domain.ActionAddNotification, domain.AddNotificationPayload{
			Message: "project opened",
			Level:   constants.NotificationInfo,
		}),
	}
	for i, a := range actions {
		a.ID = uuid.NewString()
		a.Time = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, j.Append(a))
	}
	require.NoError(t, j.Close())
}

func TestReplayJournalRebuildsState(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	journalPath := filepath.Join(t.TempDir(), "journal.jsonl")
	writeJournal(t, journalPath)

	var out bytes.Buffer
	cmd := &cobra.Command{Use: "replay"}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())

	err := replayJournal(cmd, &GlobalFlags{}, journalPath)
	require.NoError(t, err)

	rendered := out.String()
	assert.Contains(t, rendered, "/home/dev/acme")
	assert.Contains(t, rendered, "project opened")
}

func TestReplayJournalMissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cmd := &cobra.Command{Use: "replay"}
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetContext(context.Background())

	err := replayJournal(cmd, &GlobalFlags{}, filepath.Join(t.TempDir(), "nope.jsonl"))
	require.Error(t, err)
}
