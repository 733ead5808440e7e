package config

import (
	"fmt"
	"math/big"
	"strings"

	"rentacar/crypto"
)

// RateLimit throttles RPC requests per client address.
type RateLimit struct {
	RequestsPerMinute uint32 `toml:"RequestsPerMinute"`
	Burst             uint32 `toml:"Burst"`
}

// Telemetry configures OTLP exporters. Standard OTEL_* variables override the
// endpoint at startup.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}

// Allocation credits an account with payment asset units on first start.
type Allocation struct {
	Address string `toml:"Address"`
	Amount  string `toml:"Amount"`
}

// Parse decodes the allocation into a raw address and a positive amount.
func (a Allocation) Parse() ([20]byte, *big.Int, error) {
	addr, err := crypto.ParseAccount(a.Address)
	if err != nil {
		return [20]byte{}, nil, fmt.Errorf("allocation address %q: %w", a.Address, err)
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(a.Amount), 10)
	if !ok || amount.Sign() <= 0 {
		return [20]byte{}, nil, fmt.Errorf("allocation amount %q must be a positive integer", a.Amount)
	}
	if amount.BitLen() > 256 {
		return [20]byte{}, nil, fmt.Errorf("allocation amount %q exceeds 256 bits", a.Amount)
	}
	return addr, amount, nil
}
