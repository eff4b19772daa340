package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"commune/core/state"
	"commune/crypto"
)

// GenesisSpec seeds the account store on first boot. Addresses are base58.
type GenesisSpec struct {
	Program    string             `yaml:"program"`
	RewardPool string             `yaml:"rewardPool"`
	Alloc      []GenesisAllocSpec `yaml:"alloc"`
}

// GenesisAllocSpec funds one account with native units and token balances.
type GenesisAllocSpec struct {
	Address string            `yaml:"address"`
	Balance uint64            `yaml:"balance"`
	Tokens  map[string]uint64 `yaml:"tokens,omitempty"`
}

// LoadGenesis parses a genesis spec from a YAML file.
func LoadGenesis(path string) (*GenesisSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genesis: read %s: %w", path, err)
	}
	spec := &GenesisSpec{}
	if err := yaml.Unmarshal(raw, spec); err != nil {
		return nil, fmt.Errorf("genesis: parse %s: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Validate checks every address in the spec decodes.
func (g *GenesisSpec) Validate() error {
	if g.Program == "" {
		return fmt.Errorf("genesis: program address is required")
	}
	if _, err := crypto.DecodeAddress(g.Program); err != nil {
		return fmt.Errorf("genesis: program: %w", err)
	}
	if g.RewardPool != "" {
		if _, err := crypto.DecodeAddress(g.RewardPool); err != nil {
			return fmt.Errorf("genesis: reward pool: %w", err)
		}
	}
	for i, alloc := range g.Alloc {
		if _, err := crypto.DecodeAddress(alloc.Address); err != nil {
			return fmt.Errorf("genesis: alloc %d: %w", i, err)
		}
		for mint := range alloc.Tokens {
			if _, err := crypto.DecodeAddress(mint); err != nil {
				return fmt.Errorf("genesis: alloc %d token %s: %w", i, mint, err)
			}
		}
	}
	return nil
}

// Config resolves the spec's identities into a node config.
func (g *GenesisSpec) Config() (Config, error) {
	if err := g.Validate(); err != nil {
		return Config{}, err
	}
	program, _ := crypto.DecodeAddress(g.Program)
	cfg := Config{Program: program}
	if g.RewardPool != "" {
		pool, _ := crypto.DecodeAddress(g.RewardPool)
		cfg.RewardPool = pool
	}
	return cfg, nil
}

// ApplyGenesis funds the spec's allocations in one batch. Accounts that
// already exist keep their state, so re-running against a seeded store is
// a no-op.
func (n *Node) ApplyGenesis(spec *GenesisSpec) error {
	if spec == nil {
		return nil
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	return n.manager.Apply(func(b *state.Batch) error {
		for _, alloc := range spec.Alloc {
			addr, err := crypto.DecodeAddress(alloc.Address)
			if err != nil {
				return err
			}
			acc, ok, err := b.Get(addr)
			if err != nil {
				return err
			}
			if ok {
				continue
			}
			acc, err = b.Create(addr, n.cfg.Program.String())
			if err != nil {
				return err
			}
			acc.Balance = alloc.Balance
			for mint, amount := range alloc.Tokens {
				mintAddr, err := crypto.DecodeAddress(mint)
				if err != nil {
					return err
				}
				acc.SetTokenBalance(mintAddr, amount)
			}
			if err := b.Put(addr, acc); err != nil {
				return err
			}
		}
		return nil
	})
}
