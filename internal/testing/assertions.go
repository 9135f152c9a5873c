package testing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tokenrelay/relayd/internal/core/relay"
	"github.com/tokenrelay/relayd/internal/core/token"
)

// RequireBalance asserts that an account has the expected balance.
func RequireBalance(t *testing.T, env *TestEnv, currency token.Currency, account token.Account, expected uint64) {
	t.Helper()
	actual := env.Balance(currency, account)
	require.Equal(t, expected, actual,
		"Balance mismatch for %s holding %s: expected %d, got %d",
		account, currency, expected, actual)
}

// RequireSupply asserts a currency's total supply.
func RequireSupply(t *testing.T, env *TestEnv, currency token.Currency, expected uint64) {
	t.Helper()
	actual := env.Supply(currency)
	require.Equal(t, expected, actual,
		"Supply mismatch for %s: expected %d, got %d", currency, expected, actual)
}

// RequireRelayState asserts a connector's committed pool record.
func RequireRelayState(t *testing.T, env *TestEnv, currency token.Currency, expected relay.State) {
	t.Helper()
	actual, found := env.RelayState(currency)
	require.True(t, found, "Expected a relay state record for %s", currency)
	require.Equal(t, expected, actual,
		"Relay state mismatch for %s: expected %+v, got %+v", currency, expected, actual)
}

// RequireConservation asserts that a currency's supply equals the sum
// of the given account balances.
func RequireConservation(t *testing.T, env *TestEnv, currency token.Currency, accounts ...token.Account) {
	t.Helper()
	var sum uint64
	for _, a := range accounts {
		sum += env.Balance(currency, a)
	}
	require.Equal(t, env.Supply(currency), sum,
		"Conservation violated for %s: supply %d, balances total %d",
		currency, env.Supply(currency), sum)
}
