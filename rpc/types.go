package rpc

import (
	"math/big"

	"rentacar/crypto"
	"rentacar/native/rentacar"
)

// CallResponse acknowledges a committed call.
type CallResponse struct {
	Method  string   `json:"method"`
	Nonce   uint64   `json:"nonce"`
	Signers []string `json:"signers"`
	Status  string   `json:"status"`
}

type AdminResponse struct {
	Admin         string `json:"admin"`
	PaymentAsset  string `json:"paymentAsset"`
	EscrowAccount string `json:"escrowAccount"`
}

type AdminFeeResponse struct {
	AdminFee string `json:"adminFee"`
}

type BalancesResponse struct {
	AdminFeesBalance string `json:"adminFeesBalance"`
	ContractBalance  string `json:"contractBalance"`
}

type AccountBalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

type NonceResponse struct {
	Address string `json:"address"`
	Nonce   uint64 `json:"nonce"`
}

type CarResponse struct {
	Owner               string `json:"owner"`
	PricePerDay         string `json:"pricePerDay"`
	Status              string `json:"status"`
	AvailableToWithdraw string `json:"availableToWithdraw"`
	CommissionAmount    string `json:"commissionAmount"`
}

type CarInfoResponse struct {
	Owner               string `json:"owner"`
	PricePerDay         string `json:"pricePerDay"`
	AvailableToWithdraw string `json:"availableToWithdraw"`
}

type CarStatusResponse struct {
	Owner  string `json:"owner"`
	Status string `json:"status"`
}

type RentalResponse struct {
	Renter          string `json:"renter"`
	Owner           string `json:"owner"`
	TotalDaysToRent uint32 `json:"totalDaysToRent"`
	Amount          string `json:"amount"`
}

type AuditResponse struct {
	ContractBalance  string `json:"contractBalance"`
	AdminFeesBalance string `json:"adminFeesBalance"`
	OwedToOwners     string `json:"owedToOwners"`
	EscrowHoldings   string `json:"escrowHoldings"`
	Cars             int    `json:"cars"`
	Rented           int    `json:"rented"`
	Balanced         bool   `json:"balanced"`
	Funded           bool   `json:"funded"`
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func carResponse(car *rentacar.Car) CarResponse {
	return CarResponse{
		Owner:               crypto.FormatAccount(car.Owner),
		PricePerDay:         amountString(car.PricePerDay),
		Status:              car.Status.String(),
		AvailableToWithdraw: amountString(car.AvailableToWithdraw),
		CommissionAmount:    amountString(car.CommissionAmount),
	}
}

func auditResponse(report *rentacar.AuditReport) AuditResponse {
	return AuditResponse{
		ContractBalance:  amountString(report.ContractBalance),
		AdminFeesBalance: amountString(report.AdminFeesBalance),
		OwedToOwners:     amountString(report.OwedToOwners),
		EscrowHoldings:   amountString(report.EscrowHoldings),
		Cars:             report.Cars,
		Rented:           report.Rented,
		Balanced:         report.Balanced,
		Funded:           report.Funded,
	}
}
