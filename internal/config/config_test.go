package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{"HOST", "PORT", "MODEL_PATH", "ONNX_LIBRARY_PATH", "LOG_LEVEL",
		"MAX_UPLOAD_BYTES", "SHUTDOWN_TIMEOUT", "TELEGRAM_TOKEN", "HISTORY", "HISTORY_DIR", "AUTO_ORIENT"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DefaultHost, cfg.Host)
	require.Equal(t, DefaultPort, cfg.Port)
	require.Equal(t, DefaultLogLevel, cfg.LogLevel)
	require.Equal(t, int64(DefaultMaxUploadBytes), cfg.MaxUploadBytes)
	require.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
	require.Equal(t, DefaultModelPath(), cfg.ModelPath)
	require.True(t, strings.HasSuffix(cfg.ModelPath, filepath.Join(AppName, "models", DefaultModelFile)))
	require.Equal(t, "0.0.0.0:8080", cfg.Addr())
	require.True(t, cfg.History)
	require.Equal(t, DefaultHistoryDir(), cfg.HistoryDir)
	require.False(t, cfg.AutoOrient)
}

func TestLoad_BlankVariablesUseDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "")
	t.Setenv("SHUTDOWN_TIMEOUT", "")
	t.Setenv("MAX_UPLOAD_BYTES", "  ")
	t.Setenv("HISTORY", "")
	t.Setenv("LOG_LEVEL", "info")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DefaultPort, cfg.Port)
	require.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
	require.Equal(t, int64(DefaultMaxUploadBytes), cfg.MaxUploadBytes)
	require.True(t, cfg.History)
	require.Equal(t, "INFO", cfg.LogLevel)
}

func TestLoad_AutoOrient(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("AUTO_ORIENT", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.AutoOrient)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9090")
	t.Setenv("MODEL_PATH", "/srv/models/rice.onnx")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("HISTORY", "false")
	t.Setenv("HISTORY_DIR", "/var/lib/cropdoc")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9090", cfg.Addr())
	require.Equal(t, "/srv/models/rice.onnx", cfg.ModelPath)
	require.Equal(t, "DEBUG", cfg.LogLevel)
	require.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	require.False(t, cfg.History)
	require.Equal(t, "/var/lib/cropdoc", cfg.HistoryDir)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("LOG_LEVEL", "LOUD")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid config")
}

func TestValidate(t *testing.T) {
	cfg := Config{
		Host:           "localhost",
		Port:           70000,
		ModelPath:      "model.onnx",
		LogLevel:       "INFO",
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
	require.Error(t, cfg.Validate())

	cfg.Port = 8080
	require.NoError(t, cfg.Validate())
}
