package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"soulbound/crypto"
)

// Validate rejects configurations the CLI cannot run with.
func (c *Config) Validate() error {
	authority, err := crypto.ParseAddress(c.Authority)
	if err != nil {
		return fmt.Errorf("authority: %w", err)
	}
	if authority == (common.Address{}) {
		return fmt.Errorf("authority: zero address")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data dir: empty")
	}
	for _, module := range c.PausedModules {
		if !slices.Contains(KnownModules, module) {
			return fmt.Errorf("paused modules: unknown module %q", module)
		}
	}
	if (c.Telemetry.Traces || c.Telemetry.Metrics) && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		return fmt.Errorf("telemetry: endpoint required when exporters are enabled")
	}
	return nil
}

// AuthorityAddress returns the parsed authority key.
func (c *Config) AuthorityAddress() common.Address {
	addr, _ := crypto.ParseAddress(c.Authority)
	return addr
}
