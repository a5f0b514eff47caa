package domain

import "errors"

// Error taxonomy shared by the ledger core. Every failing operation aborts
// atomically and surfaces exactly one of these, possibly wrapped with context.
var (
	// ErrUnauthorized is returned when a role check fails.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidArgument is returned for a null address, zero amount,
	// zero threshold, or otherwise malformed input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSupplyCapExceeded is returned when a mint would push total supply
	// above the maximum supply.
	ErrSupplyCapExceeded = errors.New("supply cap exceeded")

	// ErrInsufficientBalance is returned when a burn or transfer exceeds
	// the available balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance is returned when a delegated transfer
	// exceeds the spender's remaining allowance.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)
