package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tokenrelay/relayd/internal/core/relay"
	"github.com/tokenrelay/relayd/internal/core/token"
)

// fakeStore is an in-memory Store that records the change lists it was
// asked to apply.
type fakeStore struct {
	balances map[balanceKey]uint64
	supplies map[token.Currency]uint64
	relays   map[token.Currency]relay.State
	applied  [][]Change
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		balances: make(map[balanceKey]uint64),
		supplies: make(map[token.Currency]uint64),
		relays:   make(map[token.Currency]relay.State),
	}
}

func (f *fakeStore) Balance(_ context.Context, c token.Currency, a token.Account) (uint64, error) {
	return f.balances[balanceKey{currency: c, account: a}], nil
}

func (f *fakeStore) Supply(_ context.Context, c token.Currency) (uint64, error) {
	return f.supplies[c], nil
}

func (f *fakeStore) RelayState(_ context.Context, c token.Currency) (relay.State, bool, error) {
	state, ok := f.relays[c]
	return state, ok, nil
}

func (f *fakeStore) ApplyChanges(_ context.Context, changes []Change) error {
	f.applied = append(f.applied, changes)
	for _, ch := range changes {
		switch ch.Kind {
		case ChangeBalance:
			f.balances[balanceKey{currency: ch.Currency, account: ch.Account}] = ch.Value
		case ChangeSupply:
			f.supplies[ch.Currency] = ch.Value
		case ChangeRelayState:
			f.relays[ch.Currency] = ch.State
		}
	}
	return nil
}

func TestStateTableReadThrough(t *testing.T) {
	base := newFakeStore()
	base.balances[balanceKey{currency: "ABC", account: "alice"}] = 77
	base.supplies["ABC"] = 77

	table := NewStateTable(context.Background(), base)

	balance, err := table.Balance("ABC", "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(77), balance)

	supply, err := table.Supply("ABC")
	require.NoError(t, err)
	require.Equal(t, uint64(77), supply)

	// Reads alone produce no changes.
	changes, err := table.Changes()
	require.NoError(t, err)
	require.Empty(t, changes)
}

func TestStateTableSeesOwnWrites(t *testing.T) {
	table := NewStateTable(context.Background(), newFakeStore())

	require.NoError(t, table.SetBalance("ABC", "alice", 10))
	balance, err := table.Balance("ABC", "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(10), balance)
}

func TestStateTableRelayStateFoundFlag(t *testing.T) {
	base := newFakeStore()
	base.relays["ABC"] = relay.State{Supply: 5, Balance: 5}

	table := NewStateTable(context.Background(), base)

	_, found, err := table.RelayState("XYZ")
	require.NoError(t, err)
	require.False(t, found)

	state, found, err := table.RelayState("ABC")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, relay.State{Supply: 5, Balance: 5}, state)

	// A write makes an absent record visible.
	require.NoError(t, table.SetRelayState("XYZ", relay.State{Supply: 1, Balance: 1}))
	_, found, err = table.RelayState("XYZ")
	require.NoError(t, err)
	require.True(t, found)
}

func TestStateTableChangesOrdering(t *testing.T) {
	table := NewStateTable(context.Background(), newFakeStore())

	require.NoError(t, table.SetSupply("XYZ", 2))
	require.NoError(t, table.SetSupply("ABC", 1))
	require.NoError(t, table.SetBalance("XYZ", "bob", 2))
	require.NoError(t, table.SetBalance("ABC", "alice", 1))
	require.NoError(t, table.SetRelayState("XYZ", relay.State{Supply: 2, Balance: 2}))

	changes, err := table.Changes()
	require.NoError(t, err)
	require.Len(t, changes, 5)

	require.Equal(t, ChangeSupply, changes[0].Kind)
	require.Equal(t, token.Currency("ABC"), changes[0].Currency)
	require.Equal(t, ChangeSupply, changes[1].Kind)
	require.Equal(t, token.Currency("XYZ"), changes[1].Currency)
	require.Equal(t, ChangeBalance, changes[2].Kind)
	require.Equal(t, token.Account("alice"), changes[2].Account)
	require.Equal(t, ChangeBalance, changes[3].Kind)
	require.Equal(t, token.Account("bob"), changes[3].Account)
	require.Equal(t, ChangeRelayState, changes[4].Kind)
}

func TestStateTableConservationBalanceOnly(t *testing.T) {
	table := NewStateTable(context.Background(), newFakeStore())
	require.NoError(t, table.SetBalance("ABC", "alice", 10))

	_, err := table.Changes()
	require.ErrorIs(t, err, ErrConservation)
}

func TestStateTableConservationSupplyOnly(t *testing.T) {
	table := NewStateTable(context.Background(), newFakeStore())
	require.NoError(t, table.SetSupply("ABC", 10))

	_, err := table.Changes()
	require.ErrorIs(t, err, ErrConservation)
}

func TestStateTableConservationBalanced(t *testing.T) {
	base := newFakeStore()
	base.balances[balanceKey{currency: "ABC", account: "alice"}] = 10
	base.supplies["ABC"] = 10

	table := NewStateTable(context.Background(), base)

	// Move 4 from alice to bob: net zero, supply untouched.
	require.NoError(t, table.SetBalance("ABC", "alice", 6))
	require.NoError(t, table.SetBalance("ABC", "bob", 4))

	changes, err := table.Changes()
	require.NoError(t, err)
	require.Len(t, changes, 2)
}
