package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, level(0))
	assert.Equal(t, zerolog.DebugLevel, level(1))
	assert.Equal(t, zerolog.TraceLevel, level(2))
	assert.Equal(t, zerolog.TraceLevel, level(5))
}

func TestSetupConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := Setup(Options{Out: &buf})
	defer closer.Close()

	logger.Debug().Msg("hidden")
	logger.Info().Str("table", "Employees").Msg("Retrieved rows")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "Retrieved rows")
	assert.Contains(t, out, "Employees")
}

func TestSetupWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dbprobe.log")

	var buf bytes.Buffer
	logger, closer := Setup(Options{Out: &buf, File: path, Verbosity: 1})
	logger.Debug().Msg("Running statement")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Running statement")
	assert.Contains(t, buf.String(), "Running statement")
}
