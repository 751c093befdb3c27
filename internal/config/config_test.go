package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoConfigFile(t *testing.T) {
	v := viper.New()
	v.Set("server.data_dir", "/tmp/does-not-matter")

	cfg, err := Load("", v)
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, ":400113", cfg.Server.Addr)
	assert.Equal(t, uint64(64<<20), cfg.Server.MaxAsyncBytesPerFID)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, ":9113", cfg.Metrics.Addr)
}

func TestLoadReadsExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "logging:\n  level: debug\nserver:\n  addr: \":5555\"\n  data_dir: \"/data\"\n  max_async_bytes_per_fid: 1024\n  shutdown_timeout: 5s\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, ":5555", cfg.Server.Addr)
	assert.Equal(t, "/data", cfg.Server.DataDir)
	assert.Equal(t, uint64(1024), cfg.Server.MaxAsyncBytesPerFID)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoadMissingExplicitConfigFileFails(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml", nil)
	assert.Error(t, err)
}

func TestLoadEnvVarOverridesDefault(t *testing.T) {
	t.Setenv("ZIPPYNFS_SERVER_ADDR", ":7777")
	t.Setenv("ZIPPYNFS_SERVER_DATA_DIR", "/env-data")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.Server.Addr)
	assert.Equal(t, "/env-data", cfg.Server.DataDir)
}

func TestLoadCLIFlagTakesPrecedenceOverEnv(t *testing.T) {
	t.Setenv("ZIPPYNFS_SERVER_ADDR", ":7777")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", "", "")
	require.NoError(t, flags.Parse([]string{"--addr=:8888"}))

	v := viper.New()
	require.NoError(t, v.BindPFlag("server.addr", flags.Lookup("addr")))

	cfg, err := Load("", v)
	require.NoError(t, err)
	assert.Equal(t, ":8888", cfg.Server.Addr)
}

func TestLoadRejectsInvalidLoggingLevel(t *testing.T) {
	v := viper.New()
	v.Set("logging.level", "not-a-level")

	_, err := Load("", v)
	assert.Error(t, err)
}

func TestApplyDefaultsDoesNotOverwriteExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "warn"},
		Server:  ServerConfig{Addr: ":1", DataDir: "/custom", MaxAsyncBytesPerFID: 1, ShutdownTimeout: time.Second},
		Metrics: MetricsConfig{Addr: ":1"},
	}
	ApplyDefaults(cfg)

	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, ":1", cfg.Server.Addr)
	assert.Equal(t, "/custom", cfg.Server.DataDir)
}
