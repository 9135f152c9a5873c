package token

import "fmt"

// Currency identifies a fungible token type. Every balance, supply and
// amount in the system is tagged with exactly one Currency.
type Currency string

func (c Currency) String() string { return string(c) }

// Account identifies a balance holder within a currency's ledger.
type Account string

func (a Account) String() string { return string(a) }

// Amount is an exact, non-negative fixed-point quantity tagged with the
// currency it denotes. Arithmetic between amounts of different currencies
// is rejected at runtime; there is no implicit conversion.
type Amount struct {
	Currency Currency
	Value    uint64
}

// NewAmount creates an amount of the given currency.
func NewAmount(c Currency, v uint64) Amount {
	return Amount{Currency: c, Value: v}
}

// IsZero reports whether the amount is the additive identity.
func (a Amount) IsZero() bool { return a.Value == 0 }

// Add returns a+b, failing if the currencies differ or the sum overflows.
func (a Amount) Add(b Amount) (Amount, error) {
	if a.Currency != b.Currency {
		return Amount{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, a.Currency, b.Currency)
	}
	sum, err := AddValues(a.Value, b.Value)
	if err != nil {
		return Amount{}, fmt.Errorf("%w %s", err, a.Currency)
	}
	return Amount{Currency: a.Currency, Value: sum}, nil
}

// AddValues returns a+b, failing on 64-bit wraparound. Every credit in
// the system funnels through this so balances and supplies cannot wrap.
func AddValues(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, fmt.Errorf("%w: %d + %d", ErrAmountOverflow, a, b)
	}
	return sum, nil
}

// Sub returns a-b, failing if the currencies differ or the result would
// be negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.Currency != b.Currency {
		return Amount{}, fmt.Errorf("%w: %s - %s", ErrCurrencyMismatch, a.Currency, b.Currency)
	}
	if b.Value > a.Value {
		return Amount{}, fmt.Errorf("%w: %d < %d %s", ErrInsufficientBalance, a.Value, b.Value, a.Currency)
	}
	return Amount{Currency: a.Currency, Value: a.Value - b.Value}, nil
}

func (a Amount) String() string {
	return fmt.Sprintf("%d %s", a.Value, a.Currency)
}
