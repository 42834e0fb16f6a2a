// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package selection

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Engine Configuration
// =============================================================================

// Config is the engine-wide configuration, loadable from YAML.
//
// # Description
//
//	Feeds the per-package configs. All fields have working defaults;
//	a zero Config passed through ApplyDefaults produces the same
//	engine as DefaultConfig().
//
// Example YAML:
//
//	algorithm: thompson
//	epsilon: 0.1
//	temperature: 1.0
//	exploration: 2.0
//	elo_k: 32
//	clusters: 4
//	tournament_rounds: 5
//	seed: 42
type Config struct {
	// Algorithm selects the bandit variant: ucb1, thompson,
	// epsilon_greedy, softmax, exp3, or contextual.
	Algorithm string `yaml:"algorithm" validate:"omitempty,oneof=ucb1 thompson epsilon_greedy softmax exp3 contextual"`

	// Epsilon is the ε-greedy exploration probability. A pointer so
	// an explicit 0 (pure greedy) is distinguishable from an absent
	// field; absent takes the 0.1 default.
	Epsilon *float64 `yaml:"epsilon" validate:"omitempty,gte=0,lte=1"`

	// Temperature is the Softmax temperature. Must be positive.
	Temperature float64 `yaml:"temperature" validate:"gte=0"`

	// Exploration is the UCB exploration bonus K.
	Exploration float64 `yaml:"exploration" validate:"gte=0"`

	// EloK is the Elo K-factor applied to both the global and the
	// per-cluster rating tables.
	EloK float64 `yaml:"elo_k" validate:"gte=0"`

	// Clusters is the k used when fitting the clusterer.
	Clusters int `yaml:"clusters" validate:"gte=0"`

	// TournamentRounds is the number of Swiss rounds per tournament.
	TournamentRounds int `yaml:"tournament_rounds" validate:"gte=0"`

	// Seed seeds every stochastic component. Zero means
	// non-deterministic seeding.
	Seed int64 `yaml:"seed"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Algorithm:        "ucb1",
		Epsilon:          floatPtr(0.1),
		Temperature:      1.0,
		Exploration:      2.0,
		EloK:             32.0,
		Clusters:         4,
		TournamentRounds: 5,
	}
}

// ApplyDefaults fills zero-valued fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if c.Algorithm == "" {
		c.Algorithm = def.Algorithm
	}
	if c.Epsilon == nil {
		c.Epsilon = floatPtr(*def.Epsilon)
	}
	if c.Temperature == 0 {
		c.Temperature = def.Temperature
	}
	if c.Exploration == 0 {
		c.Exploration = def.Exploration
	}
	if c.EloK == 0 {
		c.EloK = def.EloK
	}
	if c.Clusters == 0 {
		c.Clusters = def.Clusters
	}
	if c.TournamentRounds == 0 {
		c.TournamentRounds = def.TournamentRounds
	}
}

// Validate checks field constraints.
//
// Outputs:
//
//	error - Non-nil if any field is out of range.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid engine config: %w", err)
	}
	return nil
}

// floatPtr returns a pointer to v, for optional config fields.
func floatPtr(v float64) *float64 {
	return &v
}

// LoadConfig reads, defaults, and validates a YAML engine config.
//
// Inputs:
//
//	path - Path to the YAML file.
//
// Outputs:
//
//	Config - The loaded configuration.
//	error - Non-nil on read, parse, or validation failure.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
