package relay

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tokenrelay/relayd/internal/core/token"
)

const relayAcct = token.Account("relay")

type testView struct {
	balances map[token.Currency]map[token.Account]uint64
	supplies map[token.Currency]uint64
}

func newTestView() *testView {
	return &testView{
		balances: make(map[token.Currency]map[token.Account]uint64),
		supplies: make(map[token.Currency]uint64),
	}
}

func (v *testView) Balance(c token.Currency, a token.Account) (uint64, error) {
	return v.balances[c][a], nil
}

func (v *testView) SetBalance(c token.Currency, a token.Account, val uint64) error {
	if v.balances[c] == nil {
		v.balances[c] = make(map[token.Account]uint64)
	}
	v.balances[c][a] = val
	return nil
}

func (v *testView) Supply(c token.Currency) (uint64, error) {
	return v.supplies[c], nil
}

func (v *testView) SetSupply(c token.Currency, val uint64) error {
	v.supplies[c] = val
	return nil
}

func TestNewConnectorRejectsBadWeights(t *testing.T) {
	for _, tc := range []struct{ weight, base uint64 }{
		{0, DefaultBase},
		{DefaultWeight, 0},
		{DefaultBase + 1, DefaultBase},
	} {
		_, err := NewConnector("ABC", tc.weight, tc.base)
		require.Error(t, err, "weight %d/%d", tc.weight, tc.base)
	}

	c, err := NewConnector("ABC", DefaultWeight, DefaultBase)
	require.NoError(t, err)
	require.Equal(t, token.Currency("ABC"), c.Currency())
}

// The balanced million-unit pool: depositing 100 prices the start at 2,
// the end at 1 after truncation, and settles at 100.
func TestConvertToRelayTwoPointPricing(t *testing.T) {
	v := newTestView()
	conn := NewDefaultConnector("ABC")

	// Deposit already applied: reserve was 1,000,000, trader added 100.
	v.SetBalance("ABC", relayAcct, 1_000_100)
	state := State{Supply: 1_000_000, Balance: 1_000_000}

	out, err := conn.ConvertToRelay(v, relayAcct, 100, &state)
	require.NoError(t, err)
	require.Equal(t, uint64(100), out)
	require.Equal(t, State{Supply: 1_000_100, Balance: 1_000_100}, state)
}

func TestConvertToRelayZeroSupply(t *testing.T) {
	v := newTestView()
	conn := NewDefaultConnector("ABC")
	v.SetBalance("ABC", relayAcct, 100)

	state := State{}
	_, err := conn.ConvertToRelay(v, relayAcct, 100, &state)
	require.ErrorIs(t, err, ErrDegenerateCurve)
	require.Equal(t, State{}, state)
}

func TestConvertToRelayRequiresDeposit(t *testing.T) {
	v := newTestView()
	conn := NewDefaultConnector("ABC")
	v.SetBalance("ABC", relayAcct, 50)

	state := State{Supply: 1000, Balance: 50}
	_, err := conn.ConvertToRelay(v, relayAcct, 100, &state)
	require.ErrorIs(t, err, ErrDegenerateCurve)
}

func TestConvertToRelayMonotonic(t *testing.T) {
	conn := NewDefaultConnector("ABC")

	var previous uint64
	for _, in := range []uint64{1, 10, 100, 1_000, 10_000} {
		v := newTestView()
		v.SetBalance("ABC", relayAcct, 1_000_000+in)
		state := State{Supply: 1_000_000, Balance: 1_000_000}

		out, err := conn.ConvertToRelay(v, relayAcct, in, &state)
		require.NoError(t, err)
		require.GreaterOrEqual(t, out, previous, "input %d", in)
		previous = out
	}
}

func TestConvertFromRelayInverse(t *testing.T) {
	v := newTestView()
	conn := NewDefaultConnector("ABC")

	v.SetBalance("ABC", relayAcct, 1_000_100)
	state := State{Supply: 1_000_100, Balance: 1_000_100}

	out, err := conn.ConvertFromRelay(v, relayAcct, 100, &state)
	require.NoError(t, err)
	require.Equal(t, uint64(100), out)
	require.Equal(t, State{Supply: 1_000_000, Balance: 1_000_000}, state)
}

func TestConvertFromRelayDrainedPair(t *testing.T) {
	v := newTestView()
	conn := NewDefaultConnector("ABC")
	v.SetBalance("ABC", relayAcct, 1_000)

	state := State{Supply: 50, Balance: 50}
	_, err := conn.ConvertFromRelay(v, relayAcct, 100, &state)
	require.ErrorIs(t, err, ErrDegenerateCurve)
}

func TestConvertFromRelayZeroSupply(t *testing.T) {
	v := newTestView()
	conn := NewDefaultConnector("ABC")

	state := State{}
	_, err := conn.ConvertFromRelay(v, relayAcct, 100, &state)
	require.ErrorIs(t, err, ErrDegenerateCurve)
}

// Reserves above 2^64/Base used to wrap the start price to zero and
// consume the deposit for nothing. The products now carry through 128
// bits, so a large healthy pool prices normally.
func TestConvertToRelayLargeReserve(t *testing.T) {
	v := newTestView()
	conn := NewDefaultConnector("ABC")

	const reserve = 20_000_000_000_000 // reserve*Base exceeds 64 bits
	v.SetBalance("ABC", relayAcct, reserve+1_000)
	state := State{Supply: reserve, Balance: reserve}

	out, err := conn.ConvertToRelay(v, relayAcct, 1_000, &state)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), out)
	require.Equal(t, State{Supply: reserve + 1_000, Balance: reserve + 1_000}, state)
}

func TestConvertFromRelayLargeReserve(t *testing.T) {
	v := newTestView()
	conn := NewDefaultConnector("ABC")

	const reserve = 20_000_000_001_000
	v.SetBalance("ABC", relayAcct, reserve)
	state := State{Supply: reserve, Balance: reserve}

	out, err := conn.ConvertFromRelay(v, relayAcct, 1_000, &state)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), out)
	require.Equal(t, State{Supply: reserve - 1_000, Balance: reserve - 1_000}, state)
}

// A pair state too large to price at all is rejected, not wrapped.
func TestConvertToRelayOverflowRejected(t *testing.T) {
	v := newTestView()
	conn := NewDefaultConnector("ABC")
	v.SetBalance("ABC", relayAcct, 1_000)

	state := State{Supply: 1 << 63, Balance: 1 << 63}
	_, err := conn.ConvertToRelay(v, relayAcct, 100, &state)
	require.ErrorIs(t, err, token.ErrAmountOverflow)
	require.Equal(t, State{Supply: 1 << 63, Balance: 1 << 63}, state)
}

func TestConvertFromRelayOverflowRejected(t *testing.T) {
	v := newTestView()
	conn := NewDefaultConnector("ABC")
	v.SetBalance("ABC", relayAcct, 1_000)

	state := State{Supply: 1 << 63, Balance: 1 << 63}
	_, err := conn.ConvertFromRelay(v, relayAcct, 100, &state)
	require.ErrorIs(t, err, token.ErrAmountOverflow)
	require.Equal(t, State{Supply: 1 << 63, Balance: 1 << 63}, state)
}

// Converting in and straight back out never manufactures value.
func TestRoundTripNeverProfits(t *testing.T) {
	conn := NewDefaultConnector("ABC")

	for _, in := range []uint64{100, 777, 5_000, 123_456} {
		v := newTestView()
		v.SetBalance("ABC", relayAcct, 1_000_000+in)
		state := State{Supply: 1_000_000, Balance: 1_000_000}

		relayOut, err := conn.ConvertToRelay(v, relayAcct, in, &state)
		require.NoError(t, err)

		back, err := conn.ConvertFromRelay(v, relayAcct, relayOut, &state)
		require.NoError(t, err)
		require.LessOrEqual(t, back, in, "input %d round-tripped to %d", in, back)
	}
}
