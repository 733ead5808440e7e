package rentacar

import (
	"fmt"
	"math/big"
	"strings"
)

// Amounts are signed 128-bit quantities. big.Int carries them; every result is
// range-checked so nothing wraps or saturates.
var (
	maxI128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minI128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// MaxAmount returns the largest representable amount (2^127 - 1).
func MaxAmount() *big.Int { return new(big.Int).Set(maxI128) }

func inRange(v *big.Int) bool {
	return v != nil && v.Cmp(minI128) >= 0 && v.Cmp(maxI128) <= 0
}

func checkedAdd(a, b *big.Int) (*big.Int, error) {
	if !inRange(a) || !inRange(b) {
		return nil, ErrOverflow
	}
	sum := new(big.Int).Add(a, b)
	if !inRange(sum) {
		return nil, ErrOverflow
	}
	return sum, nil
}

func checkedSub(a, b *big.Int) (*big.Int, error) {
	if !inRange(a) || !inRange(b) {
		return nil, ErrUnderflow
	}
	diff := new(big.Int).Sub(a, b)
	if !inRange(diff) {
		return nil, ErrUnderflow
	}
	return diff, nil
}

// debit subtracts from a balance that must never go negative.
func debit(balance, amount *big.Int) (*big.Int, error) {
	diff, err := checkedSub(balance, amount)
	if err != nil {
		return nil, err
	}
	if diff.Sign() < 0 {
		return nil, ErrUnderflow
	}
	return diff, nil
}

func positive(v *big.Int) bool {
	return inRange(v) && v.Sign() > 0
}

// ParseAmount parses a base-10 amount and rejects values outside the signed
// 128-bit range.
func ParseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("rentacar: amount required")
	}
	v, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("rentacar: invalid amount %q", raw)
	}
	if !inRange(v) {
		return nil, fmt.Errorf("%w: amount %s outside 128-bit range", ErrOverflow, trimmed)
	}
	return v, nil
}
