package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogPath_UnderLinkmapDir(t *testing.T) {
	path := DefaultLogPath()

	assert.Equal(t, "linkmap.log", filepath.Base(path))
	assert.Contains(t, path, ".linkmap")
}

func TestDefaultAndDebugConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, 10, cfg.MaxSizeMB)
	assert.Equal(t, 5, cfg.MaxFiles)
	assert.True(t, cfg.WriteToStderr)

	assert.Equal(t, "debug", DebugConfig().Level)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, LevelFromString(in), in)
	}
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	// Given: a file-only configuration
	logPath := filepath.Join(t.TempDir(), "logs", "test.log")
	cfg := Config{Level: "debug", FilePath: logPath, MaxSizeMB: 1, MaxFiles: 2}

	// When: logging a record
	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	logger.Debug("clusters_committed", slog.String("domain", "example.com"), slog.Int("updated", 3))
	cleanup()

	// Then: the file holds one JSON line with the attributes
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.True(t, strings.HasPrefix(line, "{"))
	assert.Contains(t, line, `"msg":"clusters_committed"`)
	assert.Contains(t, line, `"domain":"example.com"`)
	assert.Contains(t, line, `"updated":3`)
}

func TestSetup_LevelFiltersRecords(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")
	logger, cleanup, err := Setup(Config{Level: "warn", FilePath: logPath})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	cleanup()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestRotatingWriter_RotatesBySize(t *testing.T) {
	// Given: a writer with a tiny size limit
	logPath := filepath.Join(t.TempDir(), "rot.log")
	w, err := NewRotatingWriter(logPath, 1, 2)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()
	w.maxSize = 16

	// When: writing past the limit several times
	for i := 0; i < 4; i++ {
		_, err := w.Write(bytes.Repeat([]byte("x"), 12))
		require.NoError(t, err)
	}

	// Then: rotated files exist, capped at maxFiles
	assert.FileExists(t, logPath)
	assert.FileExists(t, logPath+".1")
	assert.FileExists(t, logPath+".2")
	assert.NoFileExists(t, logPath+".3")
}

func TestDiscard_DropsEverything(t *testing.T) {
	logger := Discard()
	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
}
