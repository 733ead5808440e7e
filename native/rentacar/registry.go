package rentacar

import (
	"bytes"
	"errors"
	"math/big"
	"sort"
)

type carIndex struct {
	Owners [][20]byte
}

func (e *Engine) loadCar(owner [20]byte) (*Car, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	car := new(Car)
	ok, err := state.KVGet(carKey(owner), car)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCarNotFound
	}
	car.Owner = owner
	return car, nil
}

func (e *Engine) storeCar(car *Car) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	if car.AvailableToWithdraw == nil || car.AvailableToWithdraw.Sign() < 0 {
		return ErrUnderflow
	}
	return state.KVPut(carKey(car.Owner), car)
}

func (e *Engine) loadIndex() (*carIndex, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	idx := new(carIndex)
	if _, err := state.KVGet(keyCarIndex, idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (e *Engine) indexAdd(owner [20]byte) error {
	idx, err := e.loadIndex()
	if err != nil {
		return err
	}
	for _, existing := range idx.Owners {
		if existing == owner {
			return nil
		}
	}
	idx.Owners = append(idx.Owners, owner)
	sort.Slice(idx.Owners, func(i, j int) bool {
		return bytes.Compare(idx.Owners[i][:], idx.Owners[j][:]) < 0
	})
	return e.state.KVPut(keyCarIndex, idx)
}

func (e *Engine) indexRemove(owner [20]byte) error {
	idx, err := e.loadIndex()
	if err != nil {
		return err
	}
	kept := idx.Owners[:0]
	for _, existing := range idx.Owners {
		if existing != owner {
			kept = append(kept, existing)
		}
	}
	idx.Owners = kept
	return e.state.KVPut(keyCarIndex, idx)
}

// AddCar lists a car for owner. Only the admin may list cars.
func (e *Engine) AddCar(auth Authorizer, owner [20]byte, pricePerDay, commissionAmount *big.Int) error {
	if _, err := e.requireAdmin(auth); err != nil {
		return err
	}
	if !positive(pricePerDay) {
		return ErrInvalidAmount
	}
	if !positive(commissionAmount) {
		return ErrInvalidCommissionAmount
	}
	if owner == ([20]byte{}) {
		return ErrInvalidAddress
	}
	if _, err := e.loadCar(owner); err == nil {
		return ErrCarAlreadyExists
	} else if !errors.Is(err, ErrCarNotFound) {
		return err
	}
	car := &Car{
		Owner:               owner,
		PricePerDay:         new(big.Int).Set(pricePerDay),
		Status:              CarAvailable,
		AvailableToWithdraw: big.NewInt(0),
		CommissionAmount:    new(big.Int).Set(commissionAmount),
	}
	if err := e.storeCar(car); err != nil {
		return err
	}
	if err := e.indexAdd(owner); err != nil {
		return err
	}
	e.emit(newCarAddedEvent(car))
	return nil
}

// CarStatus returns the rental status of owner's car.
func (e *Engine) CarStatus(owner [20]byte) (CarStatus, error) {
	car, err := e.loadCar(owner)
	if err != nil {
		return CarAvailable, err
	}
	return car.Status, nil
}

// CarInfo returns the price per day and the amount owner can withdraw.
func (e *Engine) CarInfo(owner [20]byte) (*CarInfo, error) {
	car, err := e.loadCar(owner)
	if err != nil {
		return nil, err
	}
	return &CarInfo{PricePerDay: car.PricePerDay, AvailableToWithdraw: car.AvailableToWithdraw}, nil
}

// Car returns the full listing for owner.
func (e *Engine) Car(owner [20]byte) (*Car, error) {
	return e.loadCar(owner)
}

// Cars returns every listing ordered by owner address.
func (e *Engine) Cars() ([]*Car, error) {
	idx, err := e.loadIndex()
	if err != nil {
		return nil, err
	}
	cars := make([]*Car, 0, len(idx.Owners))
	for _, owner := range idx.Owners {
		car, err := e.loadCar(owner)
		if err != nil {
			return nil, err
		}
		cars = append(cars, car)
	}
	return cars, nil
}

// RemoveCar deletes owner's listing. A car that is rented or still holds funds
// for its owner cannot be removed, otherwise the escrowed liability would
// vanish from the books.
func (e *Engine) RemoveCar(auth Authorizer, owner [20]byte) error {
	if _, err := e.requireAdmin(auth); err != nil {
		return err
	}
	car, err := e.loadCar(owner)
	if err != nil {
		return err
	}
	if car.Status == CarRented {
		return ErrCarRented
	}
	if car.AvailableToWithdraw.Sign() > 0 {
		return ErrOutstandingBalance
	}
	if err := e.state.KVDelete(carKey(owner)); err != nil {
		return err
	}
	if err := e.indexRemove(owner); err != nil {
		return err
	}
	e.emit(newCarRemovedEvent(owner))
	return nil
}
