package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/loomctl/loom/internal/config"
	"github.com/loomctl/loom/internal/domain"
	"github.com/loomctl/loom/internal/engine"
	"github.com/loomctl/loom/internal/reducer"
)

// AddReplayCommand adds the replay command to the parent command.
func AddReplayCommand(parent *cobra.Command, flags *GlobalFlags) {
	var journalPath string

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild session state from the action journal",
		Long: `Replay reads the committed action journal and applies every action to a
fresh state tree through the same reducers the engine uses. Because actions
carry their own ids and timestamps, the result is byte-for-byte identical
to the state the engine held when the journal was written.

Effects requested during replay are discarded; their completion actions are
already in the journal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return replayJournal(cmd, flags, journalPath)
		},
	}
	cmd.Flags().StringVar(&journalPath, "journal", "", "journal file to replay (default ~/.loom/journal.jsonl)")
	parent.AddCommand(cmd)
}

func replayJournal(cmd *cobra.Command, flags *GlobalFlags, path string) error {
	ctx := cmd.Context()
	logger := GetLogger()

	cfg, err := config.Load(logger.WithContext(ctx))
	if err != nil {
		return err
	}
	if path == "" {
		if path, err = cfg.JournalPath(); err != nil {
			return err
		}
	}

	// Caps must match the recording engine's caps or the bounded
	// collections diverge during replay.
	registry := reducer.NewRegistry(reducerCaps(cfg))
	state := domain.NewStateTree()
	applied := 0

	err = engine.ReadJournal(path, func(action domain.Action) error {
		next, _, applyErr := registry.Apply(state, action)
		if applyErr != nil {
			return fmt.Errorf("replay stopped at action %s (%s): %w", action.ID, action.Type, applyErr)
		}
		state = next
		applied++
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info().Int("actions", applied).Str("path", path).Msg("journal replayed")

	out, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to render state: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
