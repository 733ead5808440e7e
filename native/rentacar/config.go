package rentacar

import (
	"fmt"
	"math/big"
)

// Initialize records the admin and payment asset. It may succeed only once.
func (e *Engine) Initialize(admin, paymentAsset [20]byte) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	if admin == paymentAsset {
		return ErrAdminTokenConflict
	}
	exists, err := state.KVGet(keyAdmin, nil)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyInitialized
	}
	if admin == ([20]byte{}) || paymentAsset == ([20]byte{}) {
		return ErrInvalidAddress
	}
	if err := state.KVPut(keyAdmin, admin); err != nil {
		return err
	}
	if err := state.KVPut(keyPaymentAsset, paymentAsset); err != nil {
		return err
	}
	e.emit(newInitializedEvent(admin, paymentAsset))
	return nil
}

// Initialized reports whether an admin has been recorded.
func (e *Engine) Initialized() (bool, error) {
	state, err := e.withState()
	if err != nil {
		return false, err
	}
	return state.KVGet(keyAdmin, nil)
}

// Admin returns the admin address.
func (e *Engine) Admin() ([20]byte, error) {
	return e.readAddress(keyAdmin)
}

// PaymentAsset returns the asset used for every transfer.
func (e *Engine) PaymentAsset() ([20]byte, error) {
	return e.readAddress(keyPaymentAsset)
}

func (e *Engine) readAddress(key []byte) ([20]byte, error) {
	var addr [20]byte
	state, err := e.withState()
	if err != nil {
		return addr, err
	}
	ok, err := state.KVGet(key, &addr)
	if err != nil {
		return addr, err
	}
	if !ok {
		return addr, ErrNotInitialized
	}
	return addr, nil
}

func (e *Engine) requireAdmin(auth Authorizer) ([20]byte, error) {
	admin, err := e.Admin()
	if err != nil {
		return admin, err
	}
	if err := requireAuth(auth, admin); err != nil {
		return admin, err
	}
	return admin, nil
}

// SetAdminFee stores the legacy admin fee parameter. The value is kept for
// compatibility and is not used when pricing rentals; the per-car commission
// is.
func (e *Engine) SetAdminFee(auth Authorizer, fee *big.Int) error {
	if _, err := e.requireAdmin(auth); err != nil {
		return err
	}
	if !inRange(fee) || fee.Sign() < 0 {
		return ErrInvalidAmount
	}
	if err := e.writeBig(keyAdminFee, fee); err != nil {
		return fmt.Errorf("rentacar: store admin fee: %w", err)
	}
	e.emit(newAdminFeeSetEvent(fee))
	return nil
}

// AdminFee returns the legacy admin fee parameter, zero when unset.
func (e *Engine) AdminFee() (*big.Int, error) {
	return e.readBig(keyAdminFee)
}
