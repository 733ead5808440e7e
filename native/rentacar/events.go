package rentacar

import (
	"math/big"
	"strconv"

	"rentacar/core/types"
	"rentacar/crypto"
)

const (
	EventTypeInitialized        = "rentacar.initialized"
	EventTypeAdminFeeSet        = "rentacar.admin_fee_set"
	EventTypeCarAdded           = "rentacar.car_added"
	EventTypeCarRemoved         = "rentacar.car_removed"
	EventTypeRented             = "rentacar.rented"
	EventTypeCarReturned        = "rentacar.car_returned"
	EventTypePayout             = "rentacar.payout"
	EventTypeAdminFeesWithdrawn = "rentacar.admin_fees_withdrawn"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func newInitializedEvent(admin, asset [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeInitialized,
		Attributes: map[string]string{
			"admin":        crypto.FormatAccount(admin),
			"paymentAsset": crypto.FormatAsset(asset),
		},
	}
}

func newAdminFeeSetEvent(fee *big.Int) *types.Event {
	return &types.Event{
		Type:       EventTypeAdminFeeSet,
		Attributes: map[string]string{"fee": formatAmount(fee)},
	}
}

func newCarAddedEvent(car *Car) *types.Event {
	return &types.Event{
		Type: EventTypeCarAdded,
		Attributes: map[string]string{
			"owner":            crypto.FormatAccount(car.Owner),
			"pricePerDay":      formatAmount(car.PricePerDay),
			"commissionAmount": formatAmount(car.CommissionAmount),
		},
	}
}

func newCarRemovedEvent(owner [20]byte) *types.Event {
	return &types.Event{
		Type:       EventTypeCarRemoved,
		Attributes: map[string]string{"owner": crypto.FormatAccount(owner)},
	}
}

// The rented payload carries the total charged to the renter, i.e. the
// principal plus the commission.
func newRentedEvent(renter, owner [20]byte, days uint32, total, commission *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeRented,
		Attributes: map[string]string{
			"renter":          crypto.FormatAccount(renter),
			"owner":           crypto.FormatAccount(owner),
			"totalDaysToRent": strconv.FormatUint(uint64(days), 10),
			"totalAmount":     formatAmount(total),
			"commission":      formatAmount(commission),
		},
	}
}

func newCarReturnedEvent(renter, owner [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeCarReturned,
		Attributes: map[string]string{
			"renter": crypto.FormatAccount(renter),
			"owner":  crypto.FormatAccount(owner),
		},
	}
}

func newPayoutEvent(owner [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypePayout,
		Attributes: map[string]string{
			"owner":  crypto.FormatAccount(owner),
			"amount": formatAmount(amount),
		},
	}
}

func newAdminFeesWithdrawnEvent(admin [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeAdminFeesWithdrawn,
		Attributes: map[string]string{
			"admin":  crypto.FormatAccount(admin),
			"amount": formatAmount(amount),
		},
	}
}
