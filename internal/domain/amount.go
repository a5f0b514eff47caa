package domain

import (
	"fmt"
	"math/big"
)

// Amounts are unsigned unbounded-precision integers. They are passed around
// as *big.Int and persisted as decimal strings; helpers here enforce the
// non-negative invariant at the boundary.

// ParseAmount parses a decimal string into a non-negative amount.
func ParseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: malformed amount %q", ErrInvalidArgument, s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount %q", ErrInvalidArgument, s)
	}
	return v, nil
}

// FormatAmount renders an amount as a decimal string. A nil amount renders
// as "0".
func FormatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// CloneAmount returns an independent copy of v, or zero for nil.
func CloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
