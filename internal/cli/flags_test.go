package cli

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "nil is success", err: nil, code: ExitSuccess},
		{name: "unknown flag", err: errors.New("unknown flag: --frobnicate"), code: ExitInvalidInput},
		{name: "unknown shorthand", err: errors.New("unknown shorthand flag: 'x' in -x"), code: ExitInvalidInput},
		{name: "missing flag argument", err: errors.New("flag needs an argument: --load-state"), code: ExitInvalidInput},
		{name: "mutually exclusive group", err: errors.New("if any flags in the group [verbose quiet] are set none of the others can be"), code: ExitInvalidInput},
		{name: "unknown command", err: errors.New(`unknown command "runn" for "loom"`), code: ExitInvalidInput},
		{name: "runtime failure", err: errors.New("failed to open journal"), code: ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ExitCodeForError(tt.err))
		})
	}
}

func TestAddGlobalFlags(t *testing.T) {
	flags := &GlobalFlags{}
	cmd := &cobra.Command{Use: "loom"}
	AddGlobalFlags(cmd, flags)

	require.NoError(t, cmd.PersistentFlags().Parse([]string{
		"--verbose", "--load-state", "/tmp/state.yaml", "--save-state", "/tmp/out.yaml",
	}))
	assert.True(t, flags.Verbose)
	assert.False(t, flags.Quiet)
	assert.Equal(t, "/tmp/state.yaml", flags.StatePath)
	assert.Equal(t, "/tmp/out.yaml", flags.SavePath)
	assert.False(t, flags.NoSave)
}

func TestVerboseAndQuietAreMutuallyExclusive(t *testing.T) {
	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, BuildInfo{})
	cmd.SetArgs([]string{"--verbose", "--quiet"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestBindGlobalFlags(t *testing.T) {
	flags := &GlobalFlags{}
	cmd := &cobra.Command{Use: "loom"}
	AddGlobalFlags(cmd, flags)

	v := viper.New()
	require.NoError(t, BindGlobalFlags(v, cmd))

	require.NoError(t, cmd.PersistentFlags().Set("no-save", "true"))
	assert.True(t, v.GetBool("no-save"))
}
