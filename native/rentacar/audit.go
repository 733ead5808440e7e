package rentacar

import (
	"errors"
	"math/big"
)

// Audit recomputes the conservation equation
//
//	contract_balance == admin_fees_balance + sum(car.available_to_withdraw)
//
// over every listed car, and compares the contract balance with what the
// escrow account actually holds at the transfer primitive.
func (e *Engine) Audit() (*AuditReport, error) {
	bal, err := e.loadBalances()
	if err != nil {
		return nil, err
	}
	cars, err := e.Cars()
	if err != nil {
		return nil, err
	}
	report := &AuditReport{
		ContractBalance:  bal.contract,
		AdminFeesBalance: bal.adminFees,
		OwedToOwners:     big.NewInt(0),
		EscrowHoldings:   big.NewInt(0),
		Cars:             len(cars),
	}
	for _, car := range cars {
		report.OwedToOwners.Add(report.OwedToOwners, car.AvailableToWithdraw)
		if car.Status == CarRented {
			report.Rented++
		}
	}
	expected := new(big.Int).Add(report.AdminFeesBalance, report.OwedToOwners)
	report.Balanced = expected.Cmp(report.ContractBalance) == 0

	if e.bank != nil {
		asset, err := e.PaymentAsset()
		if err != nil && !errors.Is(err, ErrNotInitialized) {
			return nil, err
		}
		if err == nil {
			holdings, err := e.bank.Balance(asset, e.escrow)
			if err != nil {
				return nil, err
			}
			report.EscrowHoldings = holdings
		}
	}
	report.Funded = report.EscrowHoldings.Cmp(report.ContractBalance) >= 0
	return report, nil
}
