package config

import (
	"fmt"
	"strings"

	"rentacar/crypto"
)

// Validate reports the first configuration problem found.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress must be set")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: DataDir must be set")
	}
	if strings.TrimSpace(cfg.AdminKeystorePath) == "" {
		return fmt.Errorf("config: AdminKeystorePath must be set")
	}
	asset, err := crypto.DecodeAddress(cfg.PaymentAsset)
	if err != nil {
		return fmt.Errorf("config: PaymentAsset: %w", err)
	}
	if asset.Prefix() != crypto.AssetPrefix {
		return fmt.Errorf("config: PaymentAsset must use the %q prefix", crypto.AssetPrefix)
	}
	if cfg.RateLimit.RequestsPerMinute == 0 || cfg.RateLimit.Burst == 0 {
		return fmt.Errorf("config: rate_limit requires RequestsPerMinute and Burst > 0")
	}
	seen := make(map[[20]byte]struct{}, len(cfg.Allocations))
	for i, alloc := range cfg.Allocations {
		addr, _, err := alloc.Parse()
		if err != nil {
			return fmt.Errorf("config: allocations[%d]: %w", i, err)
		}
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("config: allocations[%d]: duplicate address %s", i, alloc.Address)
		}
		seen[addr] = struct{}{}
	}
	return nil
}
