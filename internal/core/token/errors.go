package token

import "errors"

var (
	// ErrUnauthorized is returned when an operation is not authorized by
	// the account it requires.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInsufficientBalance is returned when a debit exceeds the
	// account's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrCurrencyMismatch is returned when amounts of different
	// currencies meet in one operation.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrAmountOverflow is returned when an amount computation does not
	// fit in 64 bits.
	ErrAmountOverflow = errors.New("amount overflow")
)
