package bank

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"rentacar/core/events"
	"rentacar/core/types"
	"rentacar/crypto"
)

const (
	EventTypeTransfer = "bank.transfer"
	EventTypeMint     = "bank.mint"
)

var (
	ErrInsufficientFunds = errors.New("bank: insufficient funds")
	ErrOverflow          = errors.New("bank: balance overflow")
	ErrInvalidAmount     = errors.New("bank: amount must not be negative")
	errNilState          = errors.New("bank: state not configured")
)

// ledgerState abstracts the subset of state manager functionality required by
// the asset ledger.
type ledgerState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type bankEvent struct {
	evt *types.Event
}

func (e bankEvent) EventType() string { return e.evt.Type }

func (e bankEvent) Event() *types.Event { return e.evt }

// Ledger tracks balances of fungible assets per account. Writes go through the
// caller's state transaction, so a transfer commits or rolls back together
// with the rest of the call.
type Ledger struct {
	state   ledgerState
	emitter events.Emitter
}

// NewLedger constructs a ledger bound to the provided state backend.
func NewLedger(state ledgerState) *Ledger {
	return &Ledger{state: state, emitter: events.NoopEmitter{}}
}

// SetEmitter overrides the event emitter. Passing nil restores the no-op
// emitter.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

func balanceKey(asset, account [20]byte) []byte {
	return []byte(fmt.Sprintf("bank/balance/%x/%x", asset, account))
}

func toUint256(amount *big.Int) (*uint256.Int, error) {
	if amount == nil {
		return new(uint256.Int), nil
	}
	if amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrOverflow
	}
	return v, nil
}

func (l *Ledger) load(asset, account [20]byte) (*uint256.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	stored := new(big.Int)
	ok, err := l.state.KVGet(balanceKey(asset, account), stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(uint256.Int), nil
	}
	return toUint256(stored)
}

func (l *Ledger) store(asset, account [20]byte, balance *uint256.Int) error {
	return l.state.KVPut(balanceKey(asset, account), balance.ToBig())
}

// Balance returns account's balance of asset.
func (l *Ledger) Balance(asset, account [20]byte) (*big.Int, error) {
	balance, err := l.load(asset, account)
	if err != nil {
		return nil, err
	}
	return balance.ToBig(), nil
}

// Mint credits newly issued units of asset to account. It is used for genesis
// allocations.
func (l *Ledger) Mint(asset, to [20]byte, amount *big.Int) error {
	amt, err := toUint256(amount)
	if err != nil {
		return err
	}
	balance, err := l.load(asset, to)
	if err != nil {
		return err
	}
	updated, overflow := new(uint256.Int).AddOverflow(balance, amt)
	if overflow {
		return ErrOverflow
	}
	if err := l.store(asset, to, updated); err != nil {
		return err
	}
	l.emitter.Emit(bankEvent{evt: &types.Event{
		Type: EventTypeMint,
		Attributes: map[string]string{
			"asset":  crypto.FormatAsset(asset),
			"to":     crypto.FormatAccount(to),
			"amount": amt.Dec(),
		},
	}})
	return nil
}

// Transfer debits amount of asset from one account and credits it to another.
func (l *Ledger) Transfer(asset, from, to [20]byte, amount *big.Int) error {
	amt, err := toUint256(amount)
	if err != nil {
		return err
	}
	fromBal, err := l.load(asset, from)
	if err != nil {
		return err
	}
	if fromBal.Lt(amt) {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientFunds, crypto.FormatAccount(from), fromBal.Dec(), amt.Dec())
	}
	if amt.IsZero() || from == to {
		return nil
	}
	toBal, err := l.load(asset, to)
	if err != nil {
		return err
	}
	credited, overflow := new(uint256.Int).AddOverflow(toBal, amt)
	if overflow {
		return ErrOverflow
	}
	debited := new(uint256.Int).Sub(fromBal, amt)
	if err := l.store(asset, from, debited); err != nil {
		return err
	}
	if err := l.store(asset, to, credited); err != nil {
		return err
	}
	l.emitter.Emit(bankEvent{evt: &types.Event{
		Type: EventTypeTransfer,
		Attributes: map[string]string{
			"asset":  crypto.FormatAsset(asset),
			"from":   crypto.FormatAccount(from),
			"to":     crypto.FormatAccount(to),
			"amount": amt.Dec(),
		},
	}})
	return nil
}
