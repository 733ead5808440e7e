package core

import (
	"context"
	"math/big"

	"rentacar/native/bank"
	"rentacar/native/rentacar"
)

var keyGenesisApplied = []byte("core/genesis")

// Allocation credits Amount of the payment asset to Address at genesis.
type Allocation struct {
	Address [20]byte
	Amount  *big.Int
}

// Genesis is the one-time bootstrap of a fresh data directory.
type Genesis struct {
	Admin        [20]byte
	PaymentAsset [20]byte
	Allocations  []Allocation
}

// Bootstrap initializes the contract and mints genesis allocations the first
// time it runs against a data directory. Later runs are no-ops; the reported
// boolean is true only when genesis was applied.
func (e *Executor) Bootstrap(ctx context.Context, genesis Genesis) (bool, error) {
	applied := false
	err := e.Apply(ctx, "genesis", func(engine *rentacar.Engine, ledger *bank.Ledger) error {
		done, err := e.state.KVGet(keyGenesisApplied, nil)
		if err != nil || done {
			return err
		}
		if err := engine.Initialize(genesis.Admin, genesis.PaymentAsset); err != nil {
			return err
		}
		for _, alloc := range genesis.Allocations {
			if err := ledger.Mint(genesis.PaymentAsset, alloc.Address, alloc.Amount); err != nil {
				return err
			}
		}
		applied = true
		return e.state.KVPut(keyGenesisApplied, true)
	})
	return applied, err
}
