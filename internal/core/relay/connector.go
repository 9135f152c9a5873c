package relay

import (
	"fmt"
	"math/bits"

	"github.com/tokenrelay/relayd/internal/core/token"
)

// Default weight ratio: 500000/1000000 = 0.5, the constant-product case.
const (
	DefaultWeight = 500000
	DefaultBase   = 1000000
)

// Connector prices one currency against the relay token with a
// constant-weight bonding curve. Weight/Base is the fraction of
// relay-token value backed by this connector's holdings; the
// configuration is immutable once built.
type Connector struct {
	currency token.Currency
	weight   uint64
	base     uint64
}

// NewConnector creates a connector for the given currency with weight
// ratio weight/base. A zero weight or base, or weight > base, is a
// configuration error.
func NewConnector(currency token.Currency, weight, base uint64) (*Connector, error) {
	if base == 0 || weight == 0 || weight > base {
		return nil, fmt.Errorf("invalid connector weight %d/%d for %s", weight, base, currency)
	}
	return &Connector{currency: currency, weight: weight, base: base}, nil
}

// NewDefaultConnector creates a connector with the 0.5 weight ratio.
func NewDefaultConnector(currency token.Currency) *Connector {
	c, _ := NewConnector(currency, DefaultWeight, DefaultBase)
	return c
}

// Currency returns the connector's currency.
func (c *Connector) Currency() token.Currency { return c.currency }

// Weight returns the weight numerator.
func (c *Connector) Weight() uint64 { return c.weight }

// Base returns the weight denominator.
func (c *Connector) Base() uint64 { return c.base }

// ConvertToRelay prices amountIn of the connector currency into freshly
// minted relay tokens and applies the result to the pair state.
//
// The connector currency has already been credited to the relay account
// by the transfer that triggered this call, so the current balance
// includes amountIn; pricing starts from the pre-transfer balance to
// avoid under-pricing the trade. The marginal price is evaluated twice,
// before the trade and as if the provisional output had been minted,
// and the second evaluation settles the trade. That two-point scheme
// approximates the curve integral without fractional exponents; it
// slightly under-pays relative to the continuous curve.
//
// All quantities are non-negative integers and every division truncates
// toward zero. Intermediate products are carried in 128 bits; a result
// that does not fit in 64 bits rejects the conversion.
func (c *Connector) ConvertToRelay(v token.View, relayAccount token.Account, amountIn uint64, state *State) (uint64, error) {
	balance, err := v.Balance(c.currency, relayAccount)
	if err != nil {
		return 0, err
	}
	if balance < amountIn {
		// The inbound transfer must have been applied first.
		return 0, fmt.Errorf("%w: relay holds %d %s, conversion of %d",
			ErrDegenerateCurve, balance, c.currency, amountIn)
	}
	previousBalance := balance - amountIn

	startDenom, err := mulChecked(c.weight, state.Supply)
	if err != nil {
		return 0, err
	}
	if startDenom == 0 {
		return 0, fmt.Errorf("%w: %s pair has no relay supply", ErrDegenerateCurve, c.currency)
	}
	startPrice, err := mulRatio(previousBalance, c.base, startDenom)
	if err != nil {
		return 0, err
	}
	provisionalOut, err := mulChecked(startPrice, amountIn)
	if err != nil {
		return 0, err
	}

	mintedSupply, err := token.AddValues(state.Supply, provisionalOut)
	if err != nil {
		return 0, err
	}
	endDenom, err := mulChecked(c.weight, mintedSupply)
	if err != nil {
		return 0, err
	}
	endPrice, err := mulRatio(balance, c.base, endDenom)
	if err != nil {
		return 0, err
	}
	finalOut, err := mulChecked(endPrice, amountIn)
	if err != nil {
		return 0, err
	}

	newBalance, err := token.AddValues(state.Balance, finalOut)
	if err != nil {
		return 0, err
	}
	newSupply, err := token.AddValues(state.Supply, finalOut)
	if err != nil {
		return 0, err
	}
	state.Balance = newBalance
	state.Supply = newSupply
	return finalOut, nil
}

// ConvertFromRelay prices relayIn redeemed relay tokens into the
// connector currency and applies the result to the pair state. It is
// the inverse of ConvertToRelay: a start price from the current reserve
// and supply yields a provisional output, the redemption is deducted
// from the pair state, and the end price over the post-deduction
// reserve and supply settles the trade.
func (c *Connector) ConvertFromRelay(v token.View, relayAccount token.Account, relayIn uint64, state *State) (uint64, error) {
	toBalance, err := v.Balance(c.currency, relayAccount)
	if err != nil {
		return 0, err
	}

	startDenom, err := mulChecked(c.weight, state.Supply)
	if err != nil {
		return 0, err
	}
	if startDenom == 0 {
		return 0, fmt.Errorf("%w: %s pair has no relay supply", ErrDegenerateCurve, c.currency)
	}
	startPrice, err := mulRatio(toBalance, c.base, startDenom)
	if err != nil {
		return 0, err
	}
	provisionalOut, err := mulChecked(startPrice, relayIn)
	if err != nil {
		return 0, err
	}

	if relayIn > state.Supply || relayIn > state.Balance {
		return 0, fmt.Errorf("%w: redeeming %d against pair {supply %d, balance %d}",
			ErrDegenerateCurve, relayIn, state.Supply, state.Balance)
	}
	state.Supply -= relayIn
	state.Balance -= relayIn

	if provisionalOut > toBalance {
		return 0, fmt.Errorf("%w: provisional output %d exceeds %s reserve %d",
			ErrDegenerateCurve, provisionalOut, c.currency, toBalance)
	}
	endDenom, err := mulChecked(c.weight, state.Supply)
	if err != nil {
		return 0, err
	}
	if endDenom == 0 {
		return 0, fmt.Errorf("%w: %s pair drained", ErrDegenerateCurve, c.currency)
	}
	endPrice, err := mulRatio(toBalance-provisionalOut, c.base, endDenom)
	if err != nil {
		return 0, err
	}

	return mulChecked(endPrice, relayIn)
}

// mulRatio returns value*num/denom with the product carried through a
// 128-bit intermediate, truncating toward zero. It fails when the
// quotient does not fit in 64 bits.
func mulRatio(value, num, denom uint64) (uint64, error) {
	hi, lo := bits.Mul64(value, num)
	if hi >= denom {
		return 0, fmt.Errorf("%w: %d * %d / %d", token.ErrAmountOverflow, value, num, denom)
	}
	quotient, _ := bits.Div64(hi, lo, denom)
	return quotient, nil
}

// mulChecked returns a*b, failing on 64-bit wraparound.
func mulChecked(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d * %d", token.ErrAmountOverflow, a, b)
	}
	return lo, nil
}
