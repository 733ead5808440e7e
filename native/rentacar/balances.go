package rentacar

import "math/big"

// ContractBalance returns the total funds held in escrow.
func (e *Engine) ContractBalance() (*big.Int, error) {
	return e.readBig(keyContractBalance)
}

// AdminFeesBalance returns the part of the escrow owed to the admin from
// collected commissions.
func (e *Engine) AdminFeesBalance() (*big.Int, error) {
	return e.readBig(keyAdminFeesBalance)
}

// balances is a working copy of the two global counters. Operations compute
// new values on it and write both back only when every check has passed.
type balances struct {
	contract  *big.Int
	adminFees *big.Int
}

func (e *Engine) loadBalances() (*balances, error) {
	contract, err := e.ContractBalance()
	if err != nil {
		return nil, err
	}
	fees, err := e.AdminFeesBalance()
	if err != nil {
		return nil, err
	}
	return &balances{contract: contract, adminFees: fees}, nil
}

func (e *Engine) storeBalances(b *balances) error {
	if err := e.writeBig(keyContractBalance, b.contract); err != nil {
		return err
	}
	return e.writeBig(keyAdminFeesBalance, b.adminFees)
}
