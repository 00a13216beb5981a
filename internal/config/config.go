// Package config defines the server's configuration. Config is loaded
// from an optional YAML file with overrides via FENRIR_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level server configuration.
type Config struct {
	ListenAddress         string        `mapstructure:"listen_address"`
	InboundQueueCapacity  int           `mapstructure:"inbound_queue_capacity"`
	BroadcastRingCapacity int           `mapstructure:"broadcast_ring_capacity"`
	Logging               LoggingConfig `mapstructure:"logging"`
}

// LoggingConfig controls the zerolog setup.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads config from the YAML file at path, falling back to
// defaults for anything the file and environment don't set. path may
// be empty or point to a nonexistent file: both are treated as "no
// file", not an error, since every setting has a usable default.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_address", "0.0.0.0:9001")
	v.SetDefault("inbound_queue_capacity", 100000)
	v.SetDefault("broadcast_ring_capacity", 1000)
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix("FENRIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &cfg, nil
}

// Validate checks that every setting a running server depends on is
// present and sane.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return errors.New("config: listen_address is required")
	}
	if c.InboundQueueCapacity <= 0 {
		return errors.New("config: inbound_queue_capacity must be > 0")
	}
	if c.BroadcastRingCapacity <= 0 {
		return errors.New("config: broadcast_ring_capacity must be > 0")
	}
	return nil
}
