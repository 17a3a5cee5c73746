package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		quiet   bool
		level   zerolog.Level
	}{
		{name: "default is info", level: zerolog.InfoLevel},
		{name: "verbose is debug", verbose: true, level: zerolog.DebugLevel},
		{name: "quiet is warn", quiet: true, level: zerolog.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := InitLoggerWithWriter(tt.verbose, tt.quiet, &buf)
			assert.Equal(t, tt.level, logger.GetLevel())
		})
	}
}

func TestInitLoggerFieldNames(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLoggerWithWriter(false, false, &buf)
	logger.Info().Msg("engine started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Contains(t, entry, "ts")
	assert.Equal(t, "engine started", entry["event"])
}

func TestInitLoggerQuietSuppressesInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLoggerWithWriter(false, true, &buf)

	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestGetLoomHomeHonorsOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOOM_HOME", dir)

	home, err := getLoomHome()
	require.NoError(t, err)
	assert.Equal(t, dir, home)

	path, err := LogFilePath()
	require.NoError(t, err)
	assert.Contains(t, path, dir)
	assert.Contains(t, path, "loom.log")
}
