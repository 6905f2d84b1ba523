// Package config loads server configuration from an optional YAML file
// with environment variables taking precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime settings for the chat server.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port string `yaml:"port"`

	// RedisAddr selects the Redis credential store when non-empty.
	RedisAddr string `yaml:"redis_addr"`

	// SQLitePath selects the SQLite credential store when non-empty
	// and RedisAddr is unset.
	SQLitePath string `yaml:"sqlite_path"`

	// AllowLegacyJoin enables the credential-less "join" frame.
	AllowLegacyJoin bool `yaml:"allow_legacy_join"`

	// PingInterval is the period of the connection liveness monitor.
	PingInterval time.Duration `yaml:"-"`

	// PingIntervalSeconds is the YAML/env representation of PingInterval.
	PingIntervalSeconds int `yaml:"ping_interval_seconds"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:                "3000",
		AllowLegacyJoin:     true,
		PingIntervalSeconds: 30,
	}
}

// Load builds the configuration: defaults, then the YAML file named by the
// CONFIG_FILE environment variable (if any), then individual environment
// variables on top.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	cfg.sanitize()
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	}
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		cfg.SQLitePath = path
	}
	if v := os.Getenv("ALLOW_LEGACY_JOIN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AllowLegacyJoin = b
		}
	}
	if v := os.Getenv("PING_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PingIntervalSeconds = n
		}
	}
}

func (c *Config) sanitize() {
	if c.Port == "" {
		c.Port = "3000"
	}
	if c.PingIntervalSeconds <= 0 {
		c.PingIntervalSeconds = 30
	}
	c.PingInterval = time.Duration(c.PingIntervalSeconds) * time.Second
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}
