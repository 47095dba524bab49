package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{envBasePath, envLogLevel, envLogFormat, envLogFile, envFlushThreshold, envIndexInterval} {
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, defaultBasePath, cfg.BasePath)
	require.Equal(t, defaultFlushThreshold, cfg.MemtableFlushThreshold)
	require.Equal(t, defaultIndexInterval, cfg.SSTableIndexInterval)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	clearEnv(t)

	t.Setenv(envBasePath, "/tmp/custom")
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envFlushThreshold, "250")
	t.Setenv(envIndexInterval, "50")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom", cfg.BasePath)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 250, cfg.MemtableFlushThreshold)
	require.Equal(t, 50, cfg.SSTableIndexInterval)
}

func TestLoadRejectsInvalidFlushThreshold(t *testing.T) {
	clearEnv(t)
	t.Setenv(envFlushThreshold, "not-a-number")

	_, err := Load()
	require.Error(t, err)
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := NewLogger(Config{LogLevel: "not-a-level"})
	require.Error(t, err)
}

func TestNewLoggerAppliesJSONFormat(t *testing.T) {
	logger, err := NewLogger(Config{LogLevel: "info", LogFormat: "json"})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewLoggerDuplicatesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sprucedb.log")

	logger, err := NewLogger(Config{LogLevel: "info", LogFormat: "text", LogFile: path})
	require.NoError(t, err)

	logger.Info("hello")

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "hello")
}
