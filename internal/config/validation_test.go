package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "INFO"},
		Server: ServerConfig{
			Addr: ":400113", DataDir: "/data",
			MaxAsyncBytesPerFID: 1024, ShutdownTimeout: time.Second,
		},
		Metrics: MetricsConfig{Enabled: false},
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestValidateRejectsMissingDataDir(t *testing.T) {
	cfg := validConfig()
	cfg.Server.DataDir = ""
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsZeroMaxAsyncBytes(t *testing.T) {
	cfg := validConfig()
	cfg.Server.MaxAsyncBytesPerFID = 0
	assert.Error(t, Validate(cfg))
}

func TestValidateRequiresMetricsAddrWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Addr = ""
	assert.Error(t, Validate(cfg))
}

func TestValidateAllowsEmptyMetricsAddrWhenDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Enabled = false
	cfg.Metrics.Addr = ""
	assert.NoError(t, Validate(cfg))
}
