// Package config loads the server's configuration from a file,
// environment variables, and CLI flags (in that increasing order of
// precedence), the same viper-based layering the rest of the pack
// uses for its server configs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete ZippyNFS server configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls the logger package.
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// ServerConfig controls the RPC listener and storage engine.
type ServerConfig struct {
	// Addr is the address to listen on, e.g. ":400113".
	Addr string `mapstructure:"addr" validate:"required"`

	// DataDir is where the storage engine keeps its data and
	// metadata entries.
	DataDir string `mapstructure:"data_dir" validate:"required"`

	// MaxAsyncBytesPerFID bounds how much UNSTABLE write data the
	// engine will buffer per FID before rejecting further writes.
	MaxAsyncBytesPerFID uint64 `mapstructure:"max_async_bytes_per_fid" validate:"required,gt=0"`

	// ShutdownTimeout is loaded and validated with the rest of the
	// config, but nothing reads it: Serve returns on shutdown without
	// waiting for in-flight connections to drain.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required_if=Enabled true"`
}

// Load reads configuration from configPath (if non-empty), then
// environment variables prefixed ZIPPYNFS_, then v's already-bound
// flags, applies defaults for anything still unset, and validates
// the result.
func Load(configPath string, v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("ZIPPYNFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only answers keys viper already knows about, so bind
	// every config key explicitly for Unmarshal to see env values.
	for _, key := range []string{
		"logging.level",
		"server.addr", "server.data_dir", "server.max_async_bytes_per_fid", "server.shutdown_timeout",
		"metrics.enabled", "metrics.addr",
	} {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(configDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if configPath == "" && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "zippynfs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "zippynfs")
}
