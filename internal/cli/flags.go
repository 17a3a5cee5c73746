// Package cli provides the command-line interface for loom.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Exit codes for the CLI.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0
	// ExitError indicates a general error.
	ExitError = 1
	// ExitInvalidInput indicates invalid user input.
	ExitInvalidInput = 2
)

// GlobalFlags holds flags available to all commands.
type GlobalFlags struct {
	// Verbose enables debug-level logging.
	Verbose bool
	// Quiet suppresses non-essential output (warn level only).
	Quiet bool
	// StatePath overrides the snapshot file to load.
	StatePath string
	// SavePath overrides the snapshot file to write on exit.
	SavePath string
	// NoSave skips writing a snapshot on exit.
	NoSave bool
}

// AddGlobalFlags adds global flags to a command. These flags are available
// to all subcommands via PersistentFlags.
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress non-essential output")
	cmd.PersistentFlags().StringVar(&flags.StatePath, "load-state", "", "snapshot file to load (default ~/.loom/state.yaml)")
	cmd.PersistentFlags().StringVar(&flags.SavePath, "save-state", "", "snapshot file to write on exit (default: same as loaded)")
	cmd.PersistentFlags().BoolVar(&flags.NoSave, "no-save", false, "do not write a snapshot on exit")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	cmd.MarkFlagsMutuallyExclusive("save-state", "no-save")
}

// BindGlobalFlags binds global flags to Viper for configuration file and
// environment variable support. The LOOM_ prefix is used for environment
// variables (e.g., LOOM_VERBOSE).
func BindGlobalFlags(v *viper.Viper, cmd *cobra.Command) error {
	rootFlags := cmd.Root().PersistentFlags()

	for _, name := range []string{"verbose", "quiet", "load-state", "save-state", "no-save"} {
		if err := v.BindPFlag(name, rootFlags.Lookup(name)); err != nil {
			return err
		}
	}

	v.SetEnvPrefix("LOOM")
	v.AutomaticEnv()
	return nil
}

// ExitCodeForError returns the appropriate exit code for the given error:
// ExitSuccess for nil, ExitInvalidInput for flag and argument mistakes, and
// ExitError for everything else.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if isInvalidInputError(err.Error()) {
		return ExitInvalidInput
	}
	return ExitError
}

// isInvalidInputError checks if an error message indicates invalid user
// input. This catches Cobra's built-in flag validation errors.
func isInvalidInputError(errMsg string) bool {
	invalidInputPatterns := []string{
		"unknown flag",
		"unknown shorthand flag",
		"flag needs an argument",
		"invalid argument",
		"if any flags in the group",
		"required flag",
		"unknown command",
		"accepts 1 arg",
	}
	for _, pattern := range invalidInputPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
