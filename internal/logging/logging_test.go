package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpierre/measureset/internal/config"
)

func restoreDefault(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestSetupJSONConsole(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer

	logger, err := setup(config.LoggingConfig{Level: "warn", Format: "json", Output: "console"}, &buf)
	require.NoError(t, err)
	defer logger.Close()

	slog.Info("hidden")
	slog.Warn("shown", "file", "a.csv")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "a.csv", entry["file"])
}

func TestSetupBoth(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "measureset.log")

	logger, err := setup(config.LoggingConfig{Level: "info", Format: "text", Output: "both", FilePath: path}, &buf)
	require.NoError(t, err)
	logger.Info("generated metadata", "rows", 3)
	require.NoError(t, logger.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "generated metadata")
	assert.Contains(t, buf.String(), "rows=3")
}
