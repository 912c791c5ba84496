package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Durable configures the authoritative backend connection.
type Durable struct {
	// Driver selects the adapter: "postgres" or "memory". Memory mode runs
	// fully offline with seeded demo participants.
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// Config represents the global ~/.skillswap/config.toml.
type Config struct {
	DefaultProfile string  `toml:"default_profile"`
	Durable        Durable `toml:"durable"`
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Durable.Driver == "" {
		cfg.Durable.Driver = "memory"
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
