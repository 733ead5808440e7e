package rentacar

import (
	"fmt"
	"math/big"
)

// CarStatus represents the rental lifecycle of a listed car.
type CarStatus uint8

const (
	CarAvailable CarStatus = iota
	CarRented
)

// Valid reports whether the status value is within the supported range.
func (s CarStatus) Valid() bool {
	switch s {
	case CarAvailable, CarRented:
		return true
	default:
		return false
	}
}

func (s CarStatus) String() string {
	switch s {
	case CarAvailable:
		return "available"
	case CarRented:
		return "rented"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Car is the listing stored for an owner. PricePerDay and CommissionAmount are
// fixed at listing time; AvailableToWithdraw accumulates rental principal owed
// to the owner until it is paid out.
type Car struct {
	Owner               [20]byte
	PricePerDay         *big.Int
	Status              CarStatus
	AvailableToWithdraw *big.Int
	CommissionAmount    *big.Int
}

// Clone returns a deep copy of the car so callers can safely mutate the copy
// without affecting the stored instance.
func (c *Car) Clone() *Car {
	if c == nil {
		return nil
	}
	clone := *c
	clone.PricePerDay = cloneBigInt(c.PricePerDay)
	clone.AvailableToWithdraw = cloneBigInt(c.AvailableToWithdraw)
	clone.CommissionAmount = cloneBigInt(c.CommissionAmount)
	return &clone
}

// CarInfo is the public projection returned by CarInfo.
type CarInfo struct {
	PricePerDay         *big.Int
	AvailableToWithdraw *big.Int
}

// RentalRecord captures the active rental between a renter and a car owner.
// Amount excludes the commission.
type RentalRecord struct {
	TotalDaysToRent uint32
	Amount          *big.Int
}

// Clone returns a deep copy of the rental record.
func (r *RentalRecord) Clone() *RentalRecord {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Amount = cloneBigInt(r.Amount)
	return &clone
}

// AuditReport summarises the escrow accounting at a point in time. Balanced
// holds when ContractBalance equals AdminFeesBalance plus OwedToOwners.
type AuditReport struct {
	ContractBalance  *big.Int
	AdminFeesBalance *big.Int
	OwedToOwners     *big.Int
	EscrowHoldings   *big.Int
	Cars             int
	Rented           int
	Balanced         bool
	Funded           bool
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
