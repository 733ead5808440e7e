package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"rentacar/crypto"
	"rentacar/native/rentacar"
)

// ErrUnknownMethod is returned for envelopes naming no contract method.
var ErrUnknownMethod = errors.New("rpc: unknown method")

// errInvalidParams marks params that fail to decode.
var errInvalidParams = errors.New("rpc: invalid params")

type applyFunc func(engine *rentacar.Engine, auth rentacar.Authorizer) error

type InitializeParams struct {
	Admin        string `json:"admin"`
	PaymentAsset string `json:"paymentAsset"`
}

type AddCarParams struct {
	Owner            string `json:"owner"`
	PricePerDay      string `json:"pricePerDay"`
	CommissionAmount string `json:"commissionAmount"`
}

type RentalParams struct {
	Renter          string `json:"renter"`
	Owner           string `json:"owner"`
	TotalDaysToRent uint32 `json:"totalDaysToRent"`
	Amount          string `json:"amount"`
}

type ReturnCarParams struct {
	Renter string `json:"renter"`
	Owner  string `json:"owner"`
}

type OwnerParams struct {
	Owner string `json:"owner"`
}

type PayoutOwnerParams struct {
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
}

type SetAdminFeeParams struct {
	AdminFee string `json:"adminFee"`
}

type WithdrawAdminFeesParams struct {
	Amount string `json:"amount"`
}

var methods = map[string]func(json.RawMessage) (applyFunc, error){
	"initialize": func(raw json.RawMessage) (applyFunc, error) {
		var p InitializeParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		admin, err := parseAddress("admin", p.Admin)
		if err != nil {
			return nil, err
		}
		asset, err := parseAddress("paymentAsset", p.PaymentAsset)
		if err != nil {
			return nil, err
		}
		return func(engine *rentacar.Engine, _ rentacar.Authorizer) error {
			return engine.Initialize(admin, asset)
		}, nil
	},
	"add_car": func(raw json.RawMessage) (applyFunc, error) {
		var p AddCarParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		owner, err := parseAddress("owner", p.Owner)
		if err != nil {
			return nil, err
		}
		price, err := parseAmount("pricePerDay", p.PricePerDay)
		if err != nil {
			return nil, err
		}
		commission, err := parseAmount("commissionAmount", p.CommissionAmount)
		if err != nil {
			return nil, err
		}
		return func(engine *rentacar.Engine, auth rentacar.Authorizer) error {
			return engine.AddCar(auth, owner, price, commission)
		}, nil
	},
	"rental": func(raw json.RawMessage) (applyFunc, error) {
		var p RentalParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		renter, err := parseAddress("renter", p.Renter)
		if err != nil {
			return nil, err
		}
		owner, err := parseAddress("owner", p.Owner)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount("amount", p.Amount)
		if err != nil {
			return nil, err
		}
		return func(engine *rentacar.Engine, auth rentacar.Authorizer) error {
			return engine.Rent(auth, renter, owner, p.TotalDaysToRent, amount)
		}, nil
	},
	"return_car": func(raw json.RawMessage) (applyFunc, error) {
		var p ReturnCarParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		renter, err := parseAddress("renter", p.Renter)
		if err != nil {
			return nil, err
		}
		owner, err := parseAddress("owner", p.Owner)
		if err != nil {
			return nil, err
		}
		return func(engine *rentacar.Engine, auth rentacar.Authorizer) error {
			return engine.ReturnCar(auth, renter, owner)
		}, nil
	},
	"remove_car": func(raw json.RawMessage) (applyFunc, error) {
		var p OwnerParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		owner, err := parseAddress("owner", p.Owner)
		if err != nil {
			return nil, err
		}
		return func(engine *rentacar.Engine, auth rentacar.Authorizer) error {
			return engine.RemoveCar(auth, owner)
		}, nil
	},
	"payout_owner": func(raw json.RawMessage) (applyFunc, error) {
		var p PayoutOwnerParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		owner, err := parseAddress("owner", p.Owner)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount("amount", p.Amount)
		if err != nil {
			return nil, err
		}
		return func(engine *rentacar.Engine, auth rentacar.Authorizer) error {
			return engine.PayoutOwner(auth, owner, amount)
		}, nil
	},
	"set_admin_fee": func(raw json.RawMessage) (applyFunc, error) {
		var p SetAdminFeeParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		fee, err := parseAmount("adminFee", p.AdminFee)
		if err != nil {
			return nil, err
		}
		return func(engine *rentacar.Engine, auth rentacar.Authorizer) error {
			return engine.SetAdminFee(auth, fee)
		}, nil
	},
	"withdraw_admin_fees": func(raw json.RawMessage) (applyFunc, error) {
		var p WithdrawAdminFeesParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		amount, err := parseAmount("amount", p.Amount)
		if err != nil {
			return nil, err
		}
		return func(engine *rentacar.Engine, auth rentacar.Authorizer) error {
			return engine.WithdrawAdminFees(auth, amount)
		}, nil
	},
}

// Methods lists the mutating methods accepted by POST /v1/call.
func Methods() []string {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func decodeParams(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: params required", errInvalidParams)
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}

func parseAddress(field, value string) ([20]byte, error) {
	addr, err := crypto.ParseAccount(value)
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %s: %v", rentacar.ErrInvalidAddress, field, err)
	}
	return addr, nil
}

// parseAmount keeps the contract's own error for out-of-range values so the
// caller sees Overflow rather than a decode failure.
func parseAmount(field, value string) (*big.Int, error) {
	amount, err := rentacar.ParseAmount(value)
	if err != nil {
		if errors.Is(err, rentacar.ErrOverflow) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", errInvalidParams, field, err)
	}
	return amount, nil
}
