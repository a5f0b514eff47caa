package domain

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// AddressLen is the decoded length of every account address in bytes.
const AddressLen = 32

// Address identifies a ledger account: a base58-encoded 32-byte public key
// (Bitcoin alphabet). The zero address (32 zero bytes) is the null account
// used as the endpoint of mint and burn movements.
type Address string

// ZeroAddress is the null account.
var ZeroAddress = Address(base58.Encode(make([]byte, AddressLen)))

// ParseAddress validates and normalizes a base58 address string.
func ParseAddress(s string) (Address, error) {
	decoded, err := base58.Decode(s)
	if err != nil {
		return "", fmt.Errorf("%w: decode address %q: %v", ErrInvalidArgument, s, err)
	}
	if len(decoded) != AddressLen {
		return "", fmt.Errorf("%w: address %q decodes to %d bytes, want %d", ErrInvalidArgument, s, len(decoded), AddressLen)
	}
	return Address(base58.Encode(decoded)), nil
}

// IsZero reports whether a is the null account.
func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}

// String returns the base58 form.
func (a Address) String() string {
	return string(a)
}

// Bytes returns the decoded 32-byte form, or nil if the address is malformed.
func (a Address) Bytes() []byte {
	decoded, err := base58.Decode(string(a))
	if err != nil || len(decoded) != AddressLen {
		return nil
	}
	return decoded
}

// IsOnCurve reports whether the address decodes to a valid ed25519 curve
// point. Derived program accounts are intentionally off-curve, so this is a
// hint for tooling, not a validity requirement.
func (a Address) IsOnCurve() bool {
	decoded := a.Bytes()
	if decoded == nil {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}
