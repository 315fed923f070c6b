// Package config declares the gossip core's configuration surface (§6)
// and loads it from TOML (github.com/naoina/toml) or CLI flags
// (github.com/urfave/cli/v2), mirroring the teacher's own config
// loading story.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"
)

// Retries holds the retry/backoff policy for a single source.
type Retries struct {
	MaxRetries     int           `toml:"max_retries"`
	InitialBackoff time.Duration `toml:"initial_backoff"`
	BackoffFactor  float64       `toml:"backoff_factor"`
}

// Config is the full configuration surface enumerated in spec §6.
type Config struct {
	RelayFactor           int     `toml:"relay_factor"`
	RelaySaturation        int     `toml:"relay_saturation"`
	IsSynchronous          bool    `toml:"is_synchronous"`
	MaxParallelDownloads   int     `toml:"max_parallel_downloads"`
	Retries                Retries `toml:"retries"`
}

// Default returns a Config with conservative, spec-valid defaults.
func Default() Config {
	return Config{
		RelayFactor:          4,
		RelaySaturation:      50,
		IsSynchronous:        false,
		MaxParallelDownloads: 8,
		Retries: Retries{
			MaxRetries:     5,
			InitialBackoff: 500 * time.Millisecond,
			BackoffFactor:  2.0,
		},
	}
}

// Validate enforces the domain constraints from spec §6.
func (c Config) Validate() error {
	if c.RelayFactor < 1 {
		return fmt.Errorf("relay_factor must be >= 1, got %d", c.RelayFactor)
	}
	if c.RelaySaturation < 0 || c.RelaySaturation > 100 {
		return fmt.Errorf("relay_saturation must be in [0, 100], got %d", c.RelaySaturation)
	}
	if c.MaxParallelDownloads < 1 {
		return fmt.Errorf("max_parallel_downloads must be >= 1, got %d", c.MaxParallelDownloads)
	}
	if c.Retries.MaxRetries < 0 {
		return fmt.Errorf("retries.max_retries must be >= 0, got %d", c.Retries.MaxRetries)
	}
	if c.Retries.InitialBackoff < 0 {
		return fmt.Errorf("retries.initial_backoff must be >= 0, got %s", c.Retries.InitialBackoff)
	}
	if c.Retries.BackoffFactor < 1.0 {
		return fmt.Errorf("retries.backoff_factor must be >= 1.0, got %f", c.Retries.BackoffFactor)
	}
	return nil
}

// LoadTOML reads a Config from a TOML file, starting from Default() so
// unspecified fields keep their defaults.
func LoadTOML(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Flags returns the urfave/cli flag set matching Config's fields, for use
// by cmd/casper-node.
func Flags() []cli.Flag {
	d := Default()
	return []cli.Flag{
		&cli.IntFlag{Name: "relay-factor", Value: d.RelayFactor, Usage: "target distinct acceptances per relayed hash"},
		&cli.IntFlag{Name: "relay-saturation", Value: d.RelaySaturation, Usage: "cap on peers contacted per hash, 0-100"},
		&cli.BoolFlag{Name: "synchronous-relay", Value: d.IsSynchronous, Usage: "block the caller until each relay round completes"},
		&cli.IntFlag{Name: "max-parallel-downloads", Value: d.MaxParallelDownloads, Usage: "global fetch permit count"},
		&cli.IntFlag{Name: "max-retries", Value: d.Retries.MaxRetries, Usage: "retry attempts per source before failover"},
		&cli.DurationFlag{Name: "initial-backoff", Value: d.Retries.InitialBackoff, Usage: "backoff before the first retry"},
		&cli.Float64Flag{Name: "backoff-factor", Value: d.Retries.BackoffFactor, Usage: "multiplier applied to backoff per attempt"},
	}
}

// FromCLI builds a Config from a populated cli.Context.
func FromCLI(c *cli.Context) (Config, error) {
	cfg := Config{
		RelayFactor:          c.Int("relay-factor"),
		RelaySaturation:      c.Int("relay-saturation"),
		IsSynchronous:        c.Bool("synchronous-relay"),
		MaxParallelDownloads: c.Int("max-parallel-downloads"),
		Retries: Retries{
			MaxRetries:     c.Int("max-retries"),
			InitialBackoff: c.Duration("initial-backoff"),
			BackoffFactor:  c.Float64("backoff-factor"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
