package testing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tokenrelay/relayd/internal/core/event"
	"github.com/tokenrelay/relayd/internal/core/relay"
	"github.com/tokenrelay/relayd/internal/core/token"
)

const (
	alice = token.Account("alice")
	bob   = token.Account("bob")
)

// The balanced million-unit pool used by most conversion tests.
func seedPool(e *TestEnv, currency token.Currency, issuer token.Account) {
	e.FundPool(currency, issuer, 1_000_000, 1_000_000)
}

func TestConnectorToRelayConversion(t *testing.T) {
	env := NewTestEnv(t)
	seedPool(env, CurrencyABC, GatewayABC)
	env.Issue(CurrencyABC, alice, 1_000)

	err := env.Convert(CurrencyABC, alice, 100, RelayCurrency, 0)
	require.NoError(t, err)

	RequireBalance(t, env, CurrencyABC, alice, 900)
	RequireBalance(t, env, CurrencyABC, RelayAccount, 1_000_100)
	RequireBalance(t, env, RelayCurrency, alice, 100)
	RequireSupply(t, env, RelayCurrency, 100)
	RequireRelayState(t, env, CurrencyABC, relay.State{Supply: 1_000_100, Balance: 1_000_100})
	RequireConservation(t, env, CurrencyABC, alice, RelayAccount, GatewayABC)
}

func TestRelayToConnectorConversion(t *testing.T) {
	env := NewTestEnv(t)
	env.FundPool(CurrencyABC, GatewayABC, 1_000_100, 1_000_100)
	env.Issue(RelayCurrency, alice, 100)

	err := env.Convert(RelayCurrency, alice, 100, CurrencyABC, 0)
	require.NoError(t, err)

	RequireBalance(t, env, CurrencyABC, alice, 100)
	RequireBalance(t, env, CurrencyABC, RelayAccount, 1_000_000)
	RequireRelayState(t, env, CurrencyABC, relay.State{Supply: 1_000_000, Balance: 1_000_000})

	// Redeemed relay tokens stay with the relay; supply is not reduced.
	RequireBalance(t, env, RelayCurrency, alice, 0)
	RequireBalance(t, env, RelayCurrency, RelayAccount, 100)
	RequireSupply(t, env, RelayCurrency, 100)
}

func TestConnectorToConnectorConversion(t *testing.T) {
	env := NewTestEnv(t)
	seedPool(env, CurrencyABC, GatewayABC)
	seedPool(env, CurrencyXYZ, GatewayXYZ)
	env.Issue(CurrencyABC, alice, 1_000)

	err := env.Convert(CurrencyABC, alice, 100, CurrencyXYZ, 0)
	require.NoError(t, err)

	RequireBalance(t, env, CurrencyABC, alice, 900)
	RequireBalance(t, env, CurrencyABC, RelayAccount, 1_000_100)
	RequireBalance(t, env, CurrencyXYZ, alice, 100)
	RequireBalance(t, env, CurrencyXYZ, RelayAccount, 999_900)

	RequireRelayState(t, env, CurrencyABC, relay.State{Supply: 1_000_100, Balance: 1_000_100})
	RequireRelayState(t, env, CurrencyXYZ, relay.State{Supply: 999_900, Balance: 999_900})

	// The relay leg is an unobserved intermediate: nothing was minted.
	RequireSupply(t, env, RelayCurrency, 0)

	RequireConservation(t, env, CurrencyABC, alice, RelayAccount, GatewayABC)
	RequireConservation(t, env, CurrencyXYZ, alice, RelayAccount, GatewayXYZ)
}

func TestSlippageRejectionRollsBackEverything(t *testing.T) {
	env := NewTestEnv(t)
	seedPool(env, CurrencyABC, GatewayABC)
	env.Issue(CurrencyABC, alice, 1_000)

	err := env.Convert(CurrencyABC, alice, 100, RelayCurrency, 1_000)
	require.ErrorIs(t, err, relay.ErrSlippageExceeded)

	// The whole event rolled back, inbound transfer included.
	RequireBalance(t, env, CurrencyABC, alice, 1_000)
	RequireBalance(t, env, CurrencyABC, RelayAccount, 1_000_000)
	RequireBalance(t, env, RelayCurrency, alice, 0)
	RequireRelayState(t, env, CurrencyABC, relay.State{Supply: 1_000_000, Balance: 1_000_000})
}

func TestSlippageBoundaryIsInclusive(t *testing.T) {
	env := NewTestEnv(t)
	seedPool(env, CurrencyABC, GatewayABC)
	env.Issue(CurrencyABC, alice, 1_000)

	// Output equals min_return exactly: accepted.
	err := env.Convert(CurrencyABC, alice, 100, RelayCurrency, 100)
	require.NoError(t, err)
	RequireBalance(t, env, RelayCurrency, alice, 100)
}

func TestSelfConversionRejected(t *testing.T) {
	env := NewTestEnv(t)
	seedPool(env, CurrencyABC, GatewayABC)
	env.Issue(CurrencyABC, alice, 1_000)

	err := env.Convert(CurrencyABC, alice, 100, CurrencyABC, 0)
	require.ErrorIs(t, err, relay.ErrSelfConversion)
	RequireBalance(t, env, CurrencyABC, alice, 1_000)
}

func TestUnknownTargetRejected(t *testing.T) {
	env := NewTestEnv(t)
	seedPool(env, CurrencyABC, GatewayABC)
	env.Issue(CurrencyABC, alice, 1_000)

	err := env.Convert(CurrencyABC, alice, 100, "DOGE", 0)
	require.ErrorIs(t, err, relay.ErrMalformedRequest)
}

func TestTransferToRelayWithoutRequestRejected(t *testing.T) {
	env := NewTestEnv(t)
	seedPool(env, CurrencyABC, GatewayABC)
	env.Issue(CurrencyABC, alice, 1_000)

	err := env.Apply(&event.Transfer{
		Currency: CurrencyABC, From: alice, To: RelayAccount, Amount: 100,
	})
	require.ErrorIs(t, err, relay.ErrMalformedRequest)
	RequireBalance(t, env, CurrencyABC, alice, 1_000)
}

func TestTransferToRelayWithGarbageMemoRejected(t *testing.T) {
	env := NewTestEnv(t)
	seedPool(env, CurrencyABC, GatewayABC)
	env.Issue(CurrencyABC, alice, 1_000)

	err := env.Apply(&event.Transfer{
		Currency: CurrencyABC, From: alice, To: RelayAccount, Amount: 100,
		Memo: []byte("not a request"),
	})
	require.ErrorIs(t, err, relay.ErrMalformedRequest)
}

func TestRelayCurrencyPassThrough(t *testing.T) {
	env := NewTestEnv(t)
	env.Issue(RelayCurrency, alice, 50)

	env.Transfer(RelayCurrency, alice, bob, 20)

	RequireBalance(t, env, RelayCurrency, alice, 30)
	RequireBalance(t, env, RelayCurrency, bob, 20)
	RequireSupply(t, env, RelayCurrency, 50)
}

func TestConnectorTransferBetweenUsers(t *testing.T) {
	env := NewTestEnv(t)
	env.Issue(CurrencyABC, alice, 50)

	env.Transfer(CurrencyABC, alice, bob, 20)

	RequireBalance(t, env, CurrencyABC, alice, 30)
	RequireBalance(t, env, CurrencyABC, bob, 20)
}

func TestConversionAgainstUnseededPool(t *testing.T) {
	env := NewTestEnv(t)
	env.Issue(CurrencyABC, alice, 1_000)

	err := env.Convert(CurrencyABC, alice, 100, RelayCurrency, 0)
	require.ErrorIs(t, err, relay.ErrDegenerateCurve)
	RequireBalance(t, env, CurrencyABC, alice, 1_000)
}

func TestConversionExceedingBalance(t *testing.T) {
	env := NewTestEnv(t)
	seedPool(env, CurrencyABC, GatewayABC)
	env.Issue(CurrencyABC, alice, 10)

	err := env.Convert(CurrencyABC, alice, 100, RelayCurrency, 0)
	require.ErrorIs(t, err, token.ErrInsufficientBalance)
	RequireBalance(t, env, CurrencyABC, alice, 10)
}

func TestJournalGrowsPerAppliedEvent(t *testing.T) {
	env := NewTestEnv(t)

	env.Issue(CurrencyABC, alice, 10)
	require.Equal(t, uint64(1), env.Store().JournalLen())

	env.Transfer(CurrencyABC, alice, bob, 5)
	require.Equal(t, uint64(2), env.Store().JournalLen())

	// Rejected events are not journaled.
	_ = env.Apply(&event.Transfer{Currency: CurrencyABC, From: alice, To: bob, Amount: 999})
	require.Equal(t, uint64(2), env.Store().JournalLen())
}

func TestRoundTripThroughRelayNeverProfits(t *testing.T) {
	env := NewTestEnv(t)
	seedPool(env, CurrencyABC, GatewayABC)
	env.Issue(CurrencyABC, alice, 10_000)

	require.NoError(t, env.Convert(CurrencyABC, alice, 5_000, RelayCurrency, 0))
	relayOut := env.Balance(RelayCurrency, alice)
	require.Positive(t, relayOut)

	require.NoError(t, env.Convert(RelayCurrency, alice, relayOut, CurrencyABC, 0))
	require.LessOrEqual(t, env.Balance(CurrencyABC, alice), uint64(10_000))
}
