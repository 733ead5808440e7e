package rentacar

func (e *Engine) loadRental(renter, owner [20]byte) (*RentalRecord, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	rental := new(RentalRecord)
	ok, err := state.KVGet(rentalKey(renter, owner), rental)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRentalNotFound
	}
	return rental, nil
}

func (e *Engine) storeRental(renter, owner [20]byte, rental *RentalRecord) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	return state.KVPut(rentalKey(renter, owner), rental)
}

func (e *Engine) deleteRental(renter, owner [20]byte) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	return state.KVDelete(rentalKey(renter, owner))
}

// HasRental reports whether renter holds an active rental of owner's car.
func (e *Engine) HasRental(renter, owner [20]byte) (bool, error) {
	state, err := e.withState()
	if err != nil {
		return false, err
	}
	return state.KVGet(rentalKey(renter, owner), nil)
}

// Rental returns the active rental record between renter and owner.
func (e *Engine) Rental(renter, owner [20]byte) (*RentalRecord, error) {
	return e.loadRental(renter, owner)
}
