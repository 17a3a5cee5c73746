package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/loomctl/loom/internal/config"
)

// AddStateCommand adds the state command to the parent command.
func AddStateCommand(parent *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the persisted session state",
		Long: `State loads the session snapshot, runs any pending schema migrations
in memory, and prints the resulting state tree as YAML. The snapshot file
is never modified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printState(cmd, flags)
		},
	}
	parent.AddCommand(cmd)
}

func printState(cmd *cobra.Command, flags *GlobalFlags) error {
	ctx := cmd.Context()
	logger := GetLogger()

	cfg, err := config.Load(logger.WithContext(ctx))
	if err != nil {
		return err
	}
	store, err := openStore(cfg, flags, logger)
	if err != nil {
		return err
	}

	state, err := store.Load(ctx)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to render state: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
