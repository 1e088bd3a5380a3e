// Package config loads and validates the node's YAML configuration
// (spec.md §6).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full node configuration.
type Config struct {
	ListenAddr       string            `yaml:"listen_addr"`
	RPCAddr          string            `yaml:"rpc_addr"`
	BootstrapNodes   []string          `yaml:"bootstrap_nodes"`
	GenesisTimestamp int64             `yaml:"genesis_timestamp"`
	Genesis          map[string]uint64 `yaml:"genesis"`
	Validators       map[string]uint64 `yaml:"validators"`
	Delegations      map[string]string `yaml:"delegations"`
	StoragePath      string            `yaml:"storage_path"`
	Logging          LoggingConfig     `yaml:"logging"`
	CORS             CORSConfig        `yaml:"cors"`
	RateLimit        RateLimitConfig   `yaml:"rate_limit"`
}

// LoggingConfig controls zerolog's level and output format, mirroring the
// ambient logging section every node in this stack carries.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CORSConfig controls the RPC surface's CORS headers.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// RateLimitConfig bounds the request rate the RPC surface accepts.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

const (
	genesisMaxFuture = 5 * time.Minute
	genesisMaxPast   = 365 * 24 * time.Hour
)

// Load reads, parses, and validates a YAML config file. Environment
// variables can override the listen/RPC addresses and log level, matching
// the ambient override pattern used throughout this stack.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if addr := os.Getenv("RPC_ADDR"); addr != "" {
		cfg.RPCAddr = addr
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 50
		cfg.RateLimit.Burst = 100
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate enforces every constraint spec.md §6 names for the
// configuration collaborator.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.RPCAddr == "" {
		return fmt.Errorf("rpc_addr is required")
	}
	for _, addr := range c.BootstrapNodes {
		if !strings.Contains(addr, ":") {
			return fmt.Errorf("bootstrap_nodes entry %q must be host:port", addr)
		}
	}
	if len(c.Validators) == 0 {
		return fmt.Errorf("validators must be non-empty")
	}
	for sender, delegate := range c.Delegations {
		if delegate == "" {
			return fmt.Errorf("delegations entry for %q has an empty validator address", sender)
		}
		if _, ok := c.Validators[delegate]; !ok {
			return fmt.Errorf("delegations entry for %q names unknown validator %q", sender, delegate)
		}
	}

	if c.GenesisTimestamp != 0 {
		now := time.Now()
		genesis := time.Unix(c.GenesisTimestamp, 0)
		if genesis.After(now.Add(genesisMaxFuture)) {
			return fmt.Errorf("genesis_timestamp is more than 5 minutes in the future")
		}
		if genesis.Before(now.Add(-genesisMaxPast)) {
			return fmt.Errorf("genesis_timestamp is more than 1 year in the past")
		}
	}

	return nil
}

// EffectiveGenesisTimestamp returns the configured genesis_timestamp, or the
// current time if it is 0 ("use current time, I am genesis").
func (c *Config) EffectiveGenesisTimestamp() int64 {
	if c.GenesisTimestamp != 0 {
		return c.GenesisTimestamp
	}
	return time.Now().Unix()
}
