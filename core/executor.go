package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rentacar/core/events"
	"rentacar/core/state"
	"rentacar/crypto"
	"rentacar/native/bank"
	"rentacar/native/rentacar"
	"rentacar/observability"
	"rentacar/storage"
)

var (
	// ErrNonceReplay is returned when a signer reuses a nonce or goes backwards.
	ErrNonceReplay = errors.New("core: nonce already used")
	// ErrNoSigners is returned for calls that carry no verified signer.
	ErrNoSigners = errors.New("core: call has no signers")
)

// Call is one mutating contract invocation. Signers maps every verified
// signer to the nonce it signed; they become the principals the contract
// checks authorization against.
type Call struct {
	Method  string
	Signers map[[20]byte]uint64
	Apply   func(engine *rentacar.Engine, auth rentacar.Authorizer) error
}

// Executor runs contract calls one at a time. Each call executes inside a
// state transaction: it either commits every write and publishes its events,
// or leaves state and subscribers untouched.
type Executor struct {
	mu      sync.Mutex
	state   *state.Manager
	engine  *rentacar.Engine
	ledger  *bank.Ledger
	buffer  *events.Buffer
	sink    events.Emitter
	logger  *slog.Logger
	metrics *observability.ContractMetrics
	tracer  trace.Tracer
}

// Option customises an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for call outcomes.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records call metrics and balance gauges.
func WithMetrics(m *observability.ContractMetrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithSink sets the destination for events of committed calls.
func WithSink(sink events.Emitter) Option {
	return func(e *Executor) {
		if sink != nil {
			e.sink = sink
		}
	}
}

// WithEscrowAccount overrides the account that holds escrowed funds.
func WithEscrowAccount(addr [20]byte) Option {
	return func(e *Executor) { e.engine.SetEscrowAccount(addr) }
}

// NewExecutor wires the contract engine and asset ledger over db.
func NewExecutor(db storage.Database, opts ...Option) *Executor {
	mgr := state.NewManager(db)
	buffer := &events.Buffer{}

	ledger := bank.NewLedger(mgr)
	ledger.SetEmitter(buffer)

	engine := rentacar.NewEngine()
	engine.SetState(mgr)
	engine.SetTransferer(ledger)
	engine.SetEmitter(buffer)

	e := &Executor{
		state:  mgr,
		engine: engine,
		ledger: ledger,
		buffer: buffer,
		sink:   events.NoopEmitter{},
		logger: slog.Default(),
		tracer: otel.Tracer("rentacar/core"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute verifies and bumps the signers' nonces, then applies the call.
func (e *Executor) Execute(ctx context.Context, call Call) error {
	if len(call.Signers) == 0 {
		return ErrNoSigners
	}
	signers := make([][20]byte, 0, len(call.Signers))
	for signer := range call.Signers {
		signers = append(signers, signer)
	}
	sort.Slice(signers, func(i, j int) bool {
		return string(signers[i][:]) < string(signers[j][:])
	})

	return e.run(ctx, call.Method, func() error {
		for _, signer := range signers {
			if err := e.useNonce(signer, call.Signers[signer]); err != nil {
				return err
			}
		}
		return call.Apply(e.engine, rentacar.NewPrincipals(signers...))
	}, slog.Int("signers", len(signers)))
}

// Apply runs fn as a host-originated call without nonce checks. It is used
// for bootstrap steps performed on behalf of the operator.
func (e *Executor) Apply(ctx context.Context, method string, fn func(*rentacar.Engine, *bank.Ledger) error) error {
	return e.run(ctx, method, func() error { return fn(e.engine, e.ledger) })
}

func (e *Executor) run(ctx context.Context, method string, fn func() error, attrs ...any) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, span := e.tracer.Start(ctx, "rentacar."+method, trace.WithAttributes(attribute.String("rentacar.method", method)))
	defer span.End()
	start := time.Now()

	e.buffer.Reset()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = outcomeOf(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.logger.Warn("contract call rejected", append(attrs,
				slog.String("method", method),
				slog.String("outcome", outcome),
				slog.Any("error", err))...)
		} else {
			e.logger.Info("contract call committed", append(attrs, slog.String("method", method))...)
		}
		e.metrics.Observe(method, outcome, time.Since(start))
	}()

	if err := fn(); err != nil {
		e.state.Discard()
		e.buffer.Reset()
		return err
	}
	if err := e.state.Commit(); err != nil {
		e.state.Discard()
		e.buffer.Reset()
		return fmt.Errorf("core: commit %s: %w", method, err)
	}
	e.buffer.Flush(e.sink)
	e.publishBalances()
	return nil
}

// Query runs a read-only view. Any writes fn makes are discarded.
func (e *Executor) Query(ctx context.Context, fn func(*rentacar.Engine) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, span := e.tracer.Start(ctx, "rentacar.query")
	defer span.End()

	defer e.state.Discard()
	defer e.buffer.Reset()
	if err := fn(e.engine); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Balance returns the payment asset balance of account.
func (e *Executor) Balance(ctx context.Context, account [20]byte) (*big.Int, error) {
	var out *big.Int
	err := e.Query(ctx, func(engine *rentacar.Engine) error {
		asset, err := engine.PaymentAsset()
		if err != nil {
			return err
		}
		out, err = e.ledger.Balance(asset, account)
		return err
	})
	return out, err
}

// Nonce returns the last nonce consumed by signer, zero when none.
func (e *Executor) Nonce(signer [20]byte) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.readNonce(signer)
}

// EscrowAccount returns the account holding escrowed funds.
func (e *Executor) EscrowAccount() [20]byte {
	return e.engine.EscrowAccount()
}

func nonceKey(signer [20]byte) []byte {
	return []byte(fmt.Sprintf("core/nonce/%x", signer[:]))
}

func (e *Executor) readNonce(signer [20]byte) (uint64, error) {
	var nonce uint64
	if _, err := e.state.KVGet(nonceKey(signer), &nonce); err != nil {
		return 0, err
	}
	return nonce, nil
}

func (e *Executor) useNonce(signer [20]byte, nonce uint64) error {
	last, err := e.readNonce(signer)
	if err != nil {
		return err
	}
	if nonce <= last {
		return fmt.Errorf("%w: %s signed %d, last used %d", ErrNonceReplay, crypto.FormatAccount(signer), nonce, last)
	}
	return e.state.KVPut(nonceKey(signer), nonce)
}

func (e *Executor) publishBalances() {
	if e.metrics == nil {
		return
	}
	contract, err := e.engine.ContractBalance()
	if err != nil {
		return
	}
	fees, err := e.engine.AdminFeesBalance()
	if err != nil {
		return
	}
	e.metrics.SetBalances(contract, fees)
}

func outcomeOf(err error) string {
	if name := rentacar.ErrorName(err); name != "" {
		return name
	}
	switch {
	case errors.Is(err, ErrNonceReplay):
		return "NonceReplay"
	case errors.Is(err, bank.ErrInsufficientFunds):
		return "InsufficientFunds"
	}
	return "error"
}
