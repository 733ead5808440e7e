package rentacar

import "errors"

var (
	ErrAlreadyInitialized      = errors.New("rentacar: already initialized")
	ErrCarNotFound             = errors.New("rentacar: car not found")
	ErrAdminTokenConflict      = errors.New("rentacar: admin and payment asset must differ")
	ErrCarAlreadyExists        = errors.New("rentacar: car already exists")
	ErrInvalidAmount           = errors.New("rentacar: amount must be positive")
	ErrRentalDurationZero      = errors.New("rentacar: rental duration cannot be zero")
	ErrSelfRentalNotAllowed    = errors.New("rentacar: owner cannot rent own car")
	ErrInsufficientBalance     = errors.New("rentacar: insufficient balance")
	ErrOverflow                = errors.New("rentacar: arithmetic overflow")
	ErrUnderflow               = errors.New("rentacar: arithmetic underflow")
	ErrInvalidCommissionAmount = errors.New("rentacar: commission amount must be positive")
	ErrCarAlreadyRented        = errors.New("rentacar: car already rented")
	ErrCarNotReturned          = errors.New("rentacar: car not returned")
	ErrCarNotRented            = errors.New("rentacar: car is not rented")
	ErrRentalNotFound          = errors.New("rentacar: rental not found")
	ErrCarRented               = errors.New("rentacar: car is currently rented")
	ErrOutstandingBalance      = errors.New("rentacar: car has funds awaiting payout")
	ErrNotInitialized          = errors.New("rentacar: not initialized")
	ErrUnauthorized            = errors.New("rentacar: unauthorized")
	ErrInvalidAddress          = errors.New("rentacar: invalid address")
)

var errorCodes = []struct {
	err  error
	code uint32
	name string
}{
	{ErrAlreadyInitialized, 1, "AlreadyInitialized"},
	{ErrCarNotFound, 2, "CarNotFound"},
	{ErrAdminTokenConflict, 3, "AdminTokenConflict"},
	{ErrCarAlreadyExists, 4, "CarAlreadyExists"},
	{ErrInvalidAmount, 5, "InvalidAmount"},
	{ErrRentalDurationZero, 6, "RentalDurationZero"},
	{ErrSelfRentalNotAllowed, 7, "SelfRentalNotAllowed"},
	{ErrInsufficientBalance, 8, "InsufficientBalance"},
	{ErrOverflow, 9, "Overflow"},
	{ErrUnderflow, 10, "Underflow"},
	{ErrInvalidCommissionAmount, 11, "InvalidCommissionAmount"},
	{ErrCarAlreadyRented, 12, "CarAlreadyRented"},
	{ErrCarNotReturned, 13, "CarNotReturned"},
	{ErrCarNotRented, 14, "CarNotRented"},
	{ErrRentalNotFound, 15, "RentalNotFound"},
	{ErrCarRented, 16, "CarRented"},
	{ErrOutstandingBalance, 17, "OutstandingBalance"},
	{ErrNotInitialized, 18, "NotInitialized"},
	{ErrUnauthorized, 19, "Unauthorized"},
	{ErrInvalidAddress, 20, "InvalidAddress"},
}

// ErrorCode returns the stable numeric code of a ledger error, or 0 when err
// is nil or not a ledger error.
func ErrorCode(err error) uint32 {
	if err == nil {
		return 0
	}
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return 0
}

// ErrorName returns the stable name of a ledger error such as
// "CarAlreadyRented", or "" when err is nil or not a ledger error.
func ErrorName(err error) string {
	if err == nil {
		return ""
	}
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.name
		}
	}
	return ""
}
