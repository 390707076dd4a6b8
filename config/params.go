// Package config loads and validates the parameters one sync run needs:
// which network and pool(s) to sync, which lightwalletd to talk to, and
// the block range to cover (spec.md's bench_params, carried over from
// original_source's BenchParams so cmd/benchsync can drive the engine
// from a config file rather than code).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/forestrie/shieldsync/synerr"
)

// Network identifies which chain a run targets. It has no effect on the
// sync engine itself (a concern of the poolcrypto.Params a caller wires
// up); it is validated, and orchestrator.Report does not record it.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// Pool selects which of the two anonymity pools a run covers.
type Pool string

const (
	Sapling Pool = "sapling"
	Orchard Pool = "orchard"
	Both    Pool = "both"
)

// Params is the full set of parameters a benchsync run needs, loaded from
// a YAML config file.
type Params struct {
	Network         Network `yaml:"network"`
	Pool            Pool    `yaml:"pool"`
	LightwalletdURL string  `yaml:"lightwalletd_url"`
	StartBlock      uint64  `yaml:"start_block"`
	EndBlock        uint64  `yaml:"end_block"`
	BatchSize       int     `yaml:"batch_size"`
	SpamThreshold   int     `yaml:"spam_threshold"`
}

// Load reads and parses a YAML config file at path, then validates it.
func Load(path string) (*Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %v: %w", path, err, synerr.ConfigInvalid)
	}
	var p Params
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %v: %w", path, err, synerr.ConfigInvalid)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks p for internal consistency, returning a
// synerr.ConfigInvalid-wrapped error describing the first problem found.
func (p *Params) Validate() error {
	switch p.Network {
	case Mainnet, Testnet:
	default:
		return fmt.Errorf("config: invalid network %q: %w", p.Network, synerr.ConfigInvalid)
	}
	switch p.Pool {
	case Sapling, Orchard, Both:
	default:
		return fmt.Errorf("config: invalid pool %q: %w", p.Pool, synerr.ConfigInvalid)
	}
	if p.LightwalletdURL == "" {
		return fmt.Errorf("config: lightwalletd_url is required: %w", synerr.ConfigInvalid)
	}
	if p.EndBlock <= p.StartBlock {
		return fmt.Errorf("config: end_block %d must be greater than start_block %d: %w", p.EndBlock, p.StartBlock, synerr.ConfigInvalid)
	}
	if p.StartBlock == 0 {
		return fmt.Errorf("config: start_block must be >= 1, bootstrap needs a frontier at start_block-1: %w", synerr.ConfigInvalid)
	}
	if p.BatchSize < 0 {
		return fmt.Errorf("config: batch_size must not be negative: %w", synerr.ConfigInvalid)
	}
	if p.SpamThreshold < 0 {
		return fmt.Errorf("config: spam_threshold must not be negative: %w", synerr.ConfigInvalid)
	}
	return nil
}

// WantsPoolA reports whether p's pool selection includes Pool-A (Orchard).
func (p *Params) WantsPoolA() bool { return p.Pool == Orchard || p.Pool == Both }

// WantsPoolB reports whether p's pool selection includes Pool-B (Sapling).
func (p *Params) WantsPoolB() bool { return p.Pool == Sapling || p.Pool == Both }
