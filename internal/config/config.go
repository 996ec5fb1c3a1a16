// Package config loads training and tokenization settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the settings for a training run and for tokenizing with its result.
type Config struct {
	Training TrainingConfig `yaml:"training"`
	Tokenize TokenizeConfig `yaml:"tokenize"`
}

// TrainingConfig configures vocabulary training.
type TrainingConfig struct {
	NumMerges     int  `yaml:"num_merges"`
	ExcludeSpaces bool `yaml:"exclude_spaces"`
	Verbosity     int  `yaml:"verbosity"` // 0, 1 or 2; diagnostics only
	Workers       int  `yaml:"workers"`   // 0 means GOMAXPROCS
}

// TokenizeConfig configures tokenization.
type TokenizeConfig struct {
	MergeProbability float64 `yaml:"merge_probability"`
	Seed             int64   `yaml:"seed"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Training: TrainingConfig{
			NumMerges:     1000,
			ExcludeSpaces: true,
			Verbosity:     0,
			Workers:       0,
		},
		Tokenize: TokenizeConfig{
			MergeProbability: 1.0,
			Seed:             1,
		},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep their default values and
// unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error while reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("error while unmarshalling config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Training.NumMerges < 0 {
		errs = append(errs, fmt.Errorf("training.num_merges must not be negative, got %d", c.Training.NumMerges))
	}
	if c.Training.Verbosity < 0 || c.Training.Verbosity > 2 {
		errs = append(errs, fmt.Errorf("training.verbosity must be 0, 1 or 2, got %d", c.Training.Verbosity))
	}
	if c.Training.Workers < 0 {
		errs = append(errs, fmt.Errorf("training.workers must not be negative, got %d", c.Training.Workers))
	}
	if p := c.Tokenize.MergeProbability; !(p > 0 && p <= 1) {
		errs = append(errs, fmt.Errorf("tokenize.merge_probability must be in (0, 1], got %g", p))
	}
	return errors.Join(errs...)
}
