package rentacar

import "fmt"

var (
	keyAdmin            = []byte("rentacar/admin")
	keyPaymentAsset     = []byte("rentacar/payment-asset")
	keyAdminFee         = []byte("rentacar/admin-fee")
	keyAdminFeesBalance = []byte("rentacar/admin-fees-balance")
	keyContractBalance  = []byte("rentacar/contract-balance")
	keyCarIndex         = []byte("rentacar/car-index")

	carPrefix    = []byte("rentacar/car/")
	rentalPrefix = []byte("rentacar/rental/")
)

func carKey(owner [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", carPrefix, owner))
}

func rentalKey(renter, owner [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x/%x", rentalPrefix, renter, owner))
}
