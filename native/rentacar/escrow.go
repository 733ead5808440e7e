package rentacar

import "math/big"

// Rent escrows amount plus the car's commission from renter and marks owner's
// car as rented. The amount is credited to the owner's withdrawable balance
// and the commission to the admin fees pool.
func (e *Engine) Rent(auth Authorizer, renter, owner [20]byte, totalDaysToRent uint32, amount *big.Int) error {
	if err := requireAuth(auth, renter); err != nil {
		return err
	}
	if !positive(amount) {
		return ErrInvalidAmount
	}
	if totalDaysToRent == 0 {
		return ErrRentalDurationZero
	}
	if renter == owner {
		return ErrSelfRentalNotAllowed
	}
	car, err := e.loadCar(owner)
	if err != nil {
		return err
	}
	if car.Status != CarAvailable {
		return ErrCarAlreadyRented
	}

	commission := car.CommissionAmount
	totalAmount, err := checkedAdd(amount, commission)
	if err != nil {
		return err
	}
	car.Status = CarRented
	if car.AvailableToWithdraw, err = checkedAdd(car.AvailableToWithdraw, amount); err != nil {
		return err
	}
	bal, err := e.loadBalances()
	if err != nil {
		return err
	}
	if bal.contract, err = checkedAdd(bal.contract, totalAmount); err != nil {
		return err
	}
	if bal.adminFees, err = checkedAdd(bal.adminFees, commission); err != nil {
		return err
	}
	if e.bank == nil {
		return errNilTransfer
	}

	if err := e.storeBalances(bal); err != nil {
		return err
	}
	if err := e.storeCar(car); err != nil {
		return err
	}
	rental := &RentalRecord{TotalDaysToRent: totalDaysToRent, Amount: new(big.Int).Set(amount)}
	if err := e.storeRental(renter, owner, rental); err != nil {
		return err
	}
	if err := e.transfer(renter, e.escrow, totalAmount); err != nil {
		return err
	}
	e.emit(newRentedEvent(renter, owner, totalDaysToRent, totalAmount, commission))
	return nil
}

// ReturnCar ends renter's rental of owner's car. Only the renter can return the
// car. No funds move: the principal was credited to the owner when the car was
// rented.
func (e *Engine) ReturnCar(auth Authorizer, renter, owner [20]byte) error {
	if err := requireAuth(auth, renter); err != nil {
		return err
	}
	car, err := e.loadCar(owner)
	if err != nil {
		return err
	}
	if car.Status != CarRented {
		return ErrCarNotRented
	}
	if _, err := e.loadRental(renter, owner); err != nil {
		return err
	}
	car.Status = CarAvailable
	if err := e.storeCar(car); err != nil {
		return err
	}
	if err := e.deleteRental(renter, owner); err != nil {
		return err
	}
	e.emit(newCarReturnedEvent(renter, owner))
	return nil
}

// PayoutOwner pays amount of the owner's withdrawable balance out of escrow.
// The car must be back (available) before its owner can withdraw.
func (e *Engine) PayoutOwner(auth Authorizer, owner [20]byte, amount *big.Int) error {
	if err := requireAuth(auth, owner); err != nil {
		return err
	}
	if !positive(amount) {
		return ErrInvalidAmount
	}
	car, err := e.loadCar(owner)
	if err != nil {
		return err
	}
	if car.Status != CarAvailable {
		return ErrCarNotReturned
	}
	if amount.Cmp(car.AvailableToWithdraw) > 0 {
		return ErrInsufficientBalance
	}
	bal, err := e.loadBalances()
	if err != nil {
		return err
	}
	if car.AvailableToWithdraw, err = debit(car.AvailableToWithdraw, amount); err != nil {
		return err
	}
	if bal.contract, err = debit(bal.contract, amount); err != nil {
		return err
	}
	if e.bank == nil {
		return errNilTransfer
	}

	if err := e.storeCar(car); err != nil {
		return err
	}
	if err := e.writeBig(keyContractBalance, bal.contract); err != nil {
		return err
	}
	if err := e.transfer(e.escrow, owner, amount); err != nil {
		return err
	}
	e.emit(newPayoutEvent(owner, amount))
	return nil
}

// WithdrawAdminFees pays amount of collected commissions to the admin.
func (e *Engine) WithdrawAdminFees(auth Authorizer, amount *big.Int) error {
	admin, err := e.requireAdmin(auth)
	if err != nil {
		return err
	}
	if !positive(amount) {
		return ErrInvalidAmount
	}
	bal, err := e.loadBalances()
	if err != nil {
		return err
	}
	if amount.Cmp(bal.adminFees) > 0 {
		return ErrInsufficientBalance
	}
	if bal.adminFees, err = debit(bal.adminFees, amount); err != nil {
		return err
	}
	if bal.contract, err = debit(bal.contract, amount); err != nil {
		return err
	}
	if e.bank == nil {
		return errNilTransfer
	}

	if err := e.storeBalances(bal); err != nil {
		return err
	}
	if err := e.transfer(e.escrow, admin, amount); err != nil {
		return err
	}
	e.emit(newAdminFeesWithdrawnEvent(admin, amount))
	return nil
}
