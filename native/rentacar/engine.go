package rentacar

import (
	"errors"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"rentacar/core/events"
	"rentacar/core/types"
)

var (
	errNilState    = errors.New("rentacar engine: state not configured")
	errNilTransfer = errors.New("rentacar engine: asset transfer not configured")
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Transferer moves units of the payment asset between accounts as part of the
// caller's surrounding state transaction.
type Transferer interface {
	Transfer(asset, from, to [20]byte, amount *big.Int) error
	Balance(asset, account [20]byte) (*big.Int, error)
}

type rentacarEvent struct {
	evt *types.Event
}

func (e rentacarEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e rentacarEvent) Event() *types.Event { return e.evt }

// DefaultEscrowAccount is the account that holds escrowed funds when no other
// account is configured.
var DefaultEscrowAccount = func() [20]byte {
	var addr [20]byte
	copy(addr[:], ethcrypto.Keccak256([]byte("rentacar/escrow"))[12:])
	return addr
}()

// Engine implements the rental escrow state machine. Each operation reads and
// writes through the configured state; when an operation returns an error the
// caller must discard the state journal of that call.
type Engine struct {
	state   engineState
	bank    Transferer
	emitter events.Emitter
	escrow  [20]byte
}

// NewEngine creates an engine with a no-op emitter and the default escrow
// account.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		escrow:  DefaultEscrowAccount,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTransferer configures the asset-transfer primitive.
func (e *Engine) SetTransferer(bank Transferer) { e.bank = bank }

// SetEscrowAccount overrides the account holding escrowed funds.
func (e *Engine) SetEscrowAccount(addr [20]byte) { e.escrow = addr }

// EscrowAccount returns the account holding escrowed funds.
func (e *Engine) EscrowAccount() [20]byte { return e.escrow }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(rentacarEvent{evt: event})
}

func (e *Engine) withState() (engineState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state, nil
}

func (e *Engine) transfer(from, to [20]byte, amount *big.Int) error {
	if e.bank == nil {
		return errNilTransfer
	}
	asset, err := e.PaymentAsset()
	if err != nil {
		return err
	}
	return e.bank.Transfer(asset, from, to, amount)
}

func (e *Engine) readBig(key []byte) (*big.Int, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	value := new(big.Int)
	ok, err := state.KVGet(key, value)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return value, nil
}

func (e *Engine) writeBig(key []byte, value *big.Int) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	if value == nil || value.Sign() < 0 {
		return ErrUnderflow
	}
	return state.KVPut(key, value)
}
