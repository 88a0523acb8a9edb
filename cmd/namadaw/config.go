package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"

	"github.com/anonployed/namada/core/types"
	"github.com/anonployed/namada/crypto/tpke"
	"github.com/anonployed/namada/log"
	"github.com/anonployed/namada/txpool/encrypted"
	"gopkg.in/yaml.v3"
)

// Configuration errors.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Config is the YAML configuration of namadaw. Command line flags override
// the values loaded from the file.
type Config struct {
	Log  log.Options `yaml:"log"`
	Pool PoolConfig  `yaml:"pool"`
	// EpochKeys maps epochs to hex encoded encryption keys.
	EpochKeys map[uint64]string `yaml:"epoch_keys"`
}

// PoolConfig configures the wrapper pool used by the batch command.
type PoolConfig struct {
	Workers    int     `yaml:"workers"`
	MaxPending int     `yaml:"max_pending"`
	Ordering   string  `yaml:"ordering"`
	FeeWeight  float64 `yaml:"fee_weight"`
	// Journal is the directory of the pool journal. Wrappers of epochs not
	// decrypted by one batch run are kept there for the next.
	Journal string `yaml:"journal"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Log: log.Options{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Pool: PoolConfig{
			Workers:    runtime.NumCPU(),
			MaxPending: 4096,
			Ordering:   "fee",
			FeeWeight:  0.3,
		},
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig. An empty path
// returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the config and returns an error describing the first
// problem found.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Pool.Workers < 1 {
		return fmt.Errorf("%w: pool.workers must be >= 1, got %d", ErrInvalidConfig, c.Pool.Workers)
	}
	if c.Pool.MaxPending < 1 {
		return fmt.Errorf("%w: pool.max_pending must be >= 1, got %d", ErrInvalidConfig, c.Pool.MaxPending)
	}
	if c.Pool.FeeWeight < 0 || c.Pool.FeeWeight > 1 {
		return fmt.Errorf("%w: pool.fee_weight must be in [0, 1], got %v", ErrInvalidConfig, c.Pool.FeeWeight)
	}
	if _, err := encrypted.PolicyByName(c.Pool.Ordering, c.Pool.FeeWeight); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.KeyRegistry(); err != nil {
		return err
	}
	return nil
}

// KeyRegistry builds the epoch key registry from EpochKeys.
func (c *Config) KeyRegistry() (*types.EpochKeyRegistry, error) {
	reg := types.NewEpochKeyRegistry()
	epochs := make([]uint64, 0, len(c.EpochKeys))
	for e := range c.EpochKeys {
		epochs = append(epochs, e)
	}
	sort.Slice(epochs, func(i, j int) bool { return epochs[i] < epochs[j] })
	for _, e := range epochs {
		var key tpke.EncryptionKey
		if err := key.UnmarshalText([]byte(c.EpochKeys[e])); err != nil {
			return nil, fmt.Errorf("%w: epoch_keys[%d]: %v", ErrInvalidConfig, e, err)
		}
		reg.Set(types.Epoch(e), key)
	}
	return reg, nil
}

// poolConfig converts the pool section into an encrypted.Config.
func (c *Config) poolConfig() (encrypted.Config, error) {
	policy, err := encrypted.PolicyByName(c.Pool.Ordering, c.Pool.FeeWeight)
	if err != nil {
		return encrypted.Config{}, err
	}
	return encrypted.Config{
		Workers:    c.Pool.Workers,
		MaxPending: c.Pool.MaxPending,
		Ordering:   policy,
	}, nil
}
