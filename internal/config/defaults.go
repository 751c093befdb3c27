package config

import (
	"strings"
	"time"
)

// ApplyDefaults fills in any unspecified fields with defaults, the
// same zero-value-replacement strategy used throughout the pack.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Addr == "" {
		cfg.Addr = ":400113"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "/var/lib/zippynfs"
	}
	if cfg.MaxAsyncBytesPerFID == 0 {
		cfg.MaxAsyncBytesPerFID = 64 << 20
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Addr == "" {
		cfg.Addr = ":9113"
	}
}
