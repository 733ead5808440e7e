package core

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"rentacar/core/events"
	"rentacar/native/bank"
	"rentacar/native/rentacar"
	"rentacar/storage"
)

type recorder struct{ seen []string }

func (r *recorder) Emit(evt events.Event) { r.seen = append(r.seen, evt.EventType()) }

func addr(b byte) [20]byte {
	var out [20]byte
	for i := range out {
		out[i] = b
	}
	return out
}

var (
	admin  = addr(0x0A)
	asset  = addr(0xEE)
	owner  = addr(0x01)
	renter = addr(0x02)
)

func newTestExecutor(t *testing.T, renterFunds int64) (*Executor, *recorder) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	sink := &recorder{}
	exec := NewExecutor(db, WithSink(sink))
	applied, err := exec.Bootstrap(context.Background(), Genesis{
		Admin:        admin,
		PaymentAsset: asset,
		Allocations:  []Allocation{{Address: renter, Amount: big.NewInt(renterFunds)}},
	})
	require.NoError(t, err)
	require.True(t, applied)

	err = exec.Execute(context.Background(), Call{
		Method:  "add_car",
		Signers: map[[20]byte]uint64{admin: 1},
		Apply: func(engine *rentacar.Engine, auth rentacar.Authorizer) error {
			return engine.AddCar(auth, owner, big.NewInt(1500), big.NewInt(1_000_000_000))
		},
	})
	require.NoError(t, err)
	sink.seen = nil
	return exec, sink
}

func rentCall(nonce uint64, amount int64) Call {
	return Call{
		Method:  "rental",
		Signers: map[[20]byte]uint64{renter: nonce},
		Apply: func(engine *rentacar.Engine, auth rentacar.Authorizer) error {
			return engine.Rent(auth, renter, owner, 3, big.NewInt(amount))
		},
	}
}

func TestBootstrapRunsOnce(t *testing.T) {
	exec, _ := newTestExecutor(t, 10)
	applied, err := exec.Bootstrap(context.Background(), Genesis{
		Admin:        admin,
		PaymentAsset: asset,
		Allocations:  []Allocation{{Address: renter, Amount: big.NewInt(99)}},
	})
	require.NoError(t, err)
	require.False(t, applied)

	funds, err := exec.Balance(context.Background(), renter)
	require.NoError(t, err)
	require.Equal(t, int64(10), funds.Int64())
}

func TestExecuteCommitsAndPublishes(t *testing.T) {
	exec, sink := newTestExecutor(t, 2_000_000_000)
	require.NoError(t, exec.Execute(context.Background(), rentCall(1, 4500)))

	require.Equal(t, []string{bank.EventTypeTransfer, rentacar.EventTypeRented}, sink.seen)

	var contract *big.Int
	require.NoError(t, exec.Query(context.Background(), func(engine *rentacar.Engine) error {
		var err error
		contract, err = engine.ContractBalance()
		return err
	}))
	require.Equal(t, "1000004500", contract.String())

	held, err := exec.Balance(context.Background(), exec.EscrowAccount())
	require.NoError(t, err)
	require.Equal(t, "1000004500", held.String())

	nonce, err := exec.Nonce(renter)
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)
}

func TestFailedTransferLeavesNoTrace(t *testing.T) {
	exec, sink := newTestExecutor(t, 4500)
	err := exec.Execute(context.Background(), rentCall(1, 4500))
	require.ErrorIs(t, err, bank.ErrInsufficientFunds)
	require.Empty(t, sink.seen)

	require.NoError(t, exec.Query(context.Background(), func(engine *rentacar.Engine) error {
		status, err := engine.CarStatus(owner)
		if err != nil {
			return err
		}
		require.Equal(t, rentacar.CarAvailable, status)
		balance, err := engine.ContractBalance()
		if err != nil {
			return err
		}
		require.Zero(t, balance.Sign())
		has, err := engine.HasRental(renter, owner)
		require.False(t, has)
		return err
	}))

	nonce, err := exec.Nonce(renter)
	require.NoError(t, err)
	require.Zero(t, nonce, "nonce of a failed call must not be consumed")
}

func TestNonceReplayRejected(t *testing.T) {
	exec, _ := newTestExecutor(t, 2_000_000_000)
	require.NoError(t, exec.Execute(context.Background(), rentCall(5, 4500)))

	err := exec.Execute(context.Background(), Call{
		Method:  "return_car",
		Signers: map[[20]byte]uint64{renter: 5},
		Apply: func(engine *rentacar.Engine, auth rentacar.Authorizer) error {
			return engine.ReturnCar(auth, renter, owner)
		},
	})
	require.ErrorIs(t, err, ErrNonceReplay)

	err = exec.Execute(context.Background(), Call{Method: "return_car", Apply: func(*rentacar.Engine, rentacar.Authorizer) error {
		return errors.New("must not run")
	}})
	require.ErrorIs(t, err, ErrNoSigners)
}

func TestQueryDiscardsWrites(t *testing.T) {
	exec, sink := newTestExecutor(t, 0)
	require.NoError(t, exec.Query(context.Background(), func(engine *rentacar.Engine) error {
		return engine.SetAdminFee(rentacar.NewPrincipals(admin), big.NewInt(42))
	}))
	require.Empty(t, sink.seen)
	require.NoError(t, exec.Query(context.Background(), func(engine *rentacar.Engine) error {
		fee, err := engine.AdminFee()
		require.Zero(t, fee.Sign())
		return err
	}))
}

func TestOutcomeNames(t *testing.T) {
	require.Equal(t, "CarAlreadyRented", outcomeOf(rentacar.ErrCarAlreadyRented))
	require.Equal(t, "NonceReplay", outcomeOf(ErrNonceReplay))
	require.Equal(t, "error", outcomeOf(errors.New("boom")))
}
