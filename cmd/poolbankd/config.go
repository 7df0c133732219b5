// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/custodial/poolbank/pool"
)

// Config is the daemon's yaml configuration. Owner identity bootstrapping
// happens here, outside the protocol.
type Config struct {
	// Owner is the sole identity authorized for administrative operations.
	Owner pool.Address `yaml:"owner"`
	// Bank is the bank's own principal identity, trusted by every ledger.
	Bank pool.Address `yaml:"bank"`
	// Seed is the custody balance the in-process vault starts with.
	Seed pool.Amount `yaml:"seed"`
}

func loadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithMessage(err, "read config")
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.WithMessage(err, "parse config")
	}
	if cfg.Owner.IsZero() {
		return nil, errors.New("config: owner must be set")
	}
	if cfg.Bank.IsZero() {
		return nil, errors.New("config: bank must be set")
	}
	if cfg.Bank == cfg.Owner {
		return nil, errors.New("config: bank and owner must differ")
	}
	return &cfg, nil
}

// UnmarshalYAML parses addresses from their hex form.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Owner string      `yaml:"owner"`
		Bank  string      `yaml:"bank"`
		Seed  pool.Amount `yaml:"seed"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Owner != "" {
		owner, err := pool.ParseAddress(raw.Owner)
		if err != nil {
			return errors.WithMessage(err, "owner")
		}
		c.Owner = *owner
	}
	if raw.Bank != "" {
		bankAddr, err := pool.ParseAddress(raw.Bank)
		if err != nil {
			return errors.WithMessage(err, "bank")
		}
		c.Bank = *bankAddr
	}
	c.Seed = raw.Seed
	return nil
}
