// Package config reads cryptohmm settings from a YAML or TOML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/happyhackingspace/cryptohmm/hmm"
)

// EnvVar names the environment variable that overrides the config file location.
const EnvVar = "CRYPTOHMM_CONFIG"

// Trainer holds Baum-Welch hyperparameters.
type Trainer struct {
	MinIterations        int      `yaml:"min_iterations" toml:"min_iterations"`
	MaxIterations        int      `yaml:"max_iterations" toml:"max_iterations"`
	ImprovementThreshold float64  `yaml:"improvement_threshold" toml:"improvement_threshold"`
	Band                 hmm.Band `yaml:"band" toml:"band"`
}

// TrainerConfig converts t to the trainer configuration used by package hmm.
func (t Trainer) TrainerConfig() hmm.TrainerConfig {
	return hmm.TrainerConfig{
		MinIterations:        t.MinIterations,
		MaxIterations:        t.MaxIterations,
		ImprovementThreshold: t.ImprovementThreshold,
		Band:                 t.Band,
	}
}

// Train configures the train command.
type Train struct {
	Trainer   `yaml:",inline"`
	States    int   `yaml:"states" toml:"states"`
	KeepSpace bool  `yaml:"keep_space" toml:"keep_space"`
	Seed      int64 `yaml:"seed" toml:"seed"`
}

// Crack configures the crack command.
type Crack struct {
	Trainer   `yaml:",inline"`
	Restarts  []int   `yaml:"restarts" toml:"restarts"`
	Lengths   []int   `yaml:"lengths" toml:"lengths"`
	Workers   int     `yaml:"workers" toml:"workers"`
	Seed      int64   `yaml:"seed" toml:"seed"`
	Smoothing float64 `yaml:"smoothing" toml:"smoothing"`
}

// Config is the full set of settings.
type Config struct {
	Results string `yaml:"results" toml:"results"` // folder for JSON results
	Train   Train  `yaml:"train" toml:"train"`
	Crack   Crack  `yaml:"crack" toml:"crack"`
}

// Default returns the built-in settings: English letter statistics for train, and a
// restart grid over three ciphertext lengths with near-uniform initialization for crack.
func Default() Config {
	return Config{
		Results: "results",
		Train: Train{
			Trainer: Trainer{
				MinIterations:        100,
				MaxIterations:        250,
				ImprovementThreshold: 0.01,
				Band:                 hmm.Band{Min: 30, Max: 70},
			},
			States: 2,
		},
		Crack: Crack{
			Trainer: Trainer{
				MinIterations:        200,
				MaxIterations:        200,
				ImprovementThreshold: 1e-3,
				Band:                 hmm.Band{Min: 45, Max: 55},
			},
			Restarts:  []int{1, 10, 100, 1000},
			Lengths:   []int{1000, 400, 300},
			Smoothing: 5,
		},
	}
}

// Validate checks both command sections.
func (c Config) Validate() error {
	if c.Train.States <= 0 {
		return fmt.Errorf("config: train.states = %d: %w", c.Train.States, hmm.ErrInvalidConfiguration)
	}
	if err := c.Train.TrainerConfig().Validate(); err != nil {
		return fmt.Errorf("config: train: %w", err)
	}
	if err := c.Crack.TrainerConfig().Validate(); err != nil {
		return fmt.Errorf("config: crack: %w", err)
	}
	if len(c.Crack.Restarts) == 0 {
		return fmt.Errorf("config: crack.restarts is empty: %w", hmm.ErrInvalidConfiguration)
	}
	for _, r := range c.Crack.Restarts {
		if r < 1 {
			return fmt.Errorf("config: crack.restarts contains %d: %w", r, hmm.ErrInvalidConfiguration)
		}
	}
	if c.Crack.Smoothing < 0 {
		return fmt.Errorf("config: crack.smoothing = %v: %w", c.Crack.Smoothing, hmm.ErrInvalidConfiguration)
	}
	return nil
}

// Path returns the config file to read: $CRYPTOHMM_CONFIG if set, otherwise the first of
// config.yaml, config.yml and config.toml that exists in the user config directory
// under cryptohmm. It returns "" when there is none.
func Path() string {
	if p := os.Getenv(EnvVar); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		p := filepath.Join(dir, "cryptohmm", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads path over the defaults. The format follows the file extension.
// Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("config: decode %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return cfg, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, fmt.Errorf("config: %s: unknown keys %v", path, undecoded)
		}
	default:
		return cfg, fmt.Errorf("config: %s: unsupported extension %q", path, ext)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDefault loads the file named by Path, or returns Default when there is none.
// The returned path is empty in the latter case.
func LoadDefault() (Config, string, error) {
	path := Path()
	if path == "" {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}
