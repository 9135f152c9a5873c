package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// mapView is a plain in-memory View for unit tests.
type mapView struct {
	balances map[Currency]map[Account]uint64
	supplies map[Currency]uint64
}

func newMapView() *mapView {
	return &mapView{
		balances: make(map[Currency]map[Account]uint64),
		supplies: make(map[Currency]uint64),
	}
}

func (m *mapView) Balance(c Currency, a Account) (uint64, error) {
	return m.balances[c][a], nil
}

func (m *mapView) SetBalance(c Currency, a Account, v uint64) error {
	if m.balances[c] == nil {
		m.balances[c] = make(map[Account]uint64)
	}
	m.balances[c][a] = v
	return nil
}

func (m *mapView) Supply(c Currency) (uint64, error) {
	return m.supplies[c], nil
}

func (m *mapView) SetSupply(c Currency, v uint64) error {
	m.supplies[c] = v
	return nil
}

func TestIssueDeliversToRecipient(t *testing.T) {
	v := newMapView()
	ledger := NewLedger("ABC", "gateway")

	err := ledger.Issue(v, AuthorizedAccount("gateway"), "alice", NewAmount("ABC", 500))
	require.NoError(t, err)

	require.Equal(t, uint64(500), v.balances["ABC"]["alice"])
	require.Equal(t, uint64(0), v.balances["ABC"]["gateway"])
	require.Equal(t, uint64(500), v.supplies["ABC"])
}

func TestIssueToIssuerKeepsSupply(t *testing.T) {
	v := newMapView()
	ledger := NewLedger("ABC", "gateway")

	err := ledger.Issue(v, AuthorizedAccount("gateway"), "gateway", NewAmount("ABC", 42))
	require.NoError(t, err)

	require.Equal(t, uint64(42), v.balances["ABC"]["gateway"])
	require.Equal(t, uint64(42), v.supplies["ABC"])
}

func TestIssueRequiresIssuerAuthority(t *testing.T) {
	v := newMapView()
	ledger := NewLedger("ABC", "gateway")

	err := ledger.Issue(v, AuthorizedAccount("alice"), "alice", NewAmount("ABC", 500))
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, uint64(0), v.supplies["ABC"])
}

func TestIssueRejectsForeignAmount(t *testing.T) {
	v := newMapView()
	ledger := NewLedger("ABC", "gateway")

	err := ledger.Issue(v, AuthorizedAccount("gateway"), "alice", NewAmount("XYZ", 500))
	require.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestTransferMovesFunds(t *testing.T) {
	v := newMapView()
	ledger := NewLedger("ABC", "gateway")
	require.NoError(t, ledger.Issue(v, AuthorizedAccount("gateway"), "alice", NewAmount("ABC", 100)))

	err := ledger.Transfer(v, AuthorizedAccount("alice"), "alice", "bob", NewAmount("ABC", 30))
	require.NoError(t, err)

	require.Equal(t, uint64(70), v.balances["ABC"]["alice"])
	require.Equal(t, uint64(30), v.balances["ABC"]["bob"])
	require.Equal(t, uint64(100), v.supplies["ABC"])
}

func TestTransferRequiresSenderAuthority(t *testing.T) {
	v := newMapView()
	ledger := NewLedger("ABC", "gateway")
	require.NoError(t, ledger.Issue(v, AuthorizedAccount("gateway"), "alice", NewAmount("ABC", 100)))

	err := ledger.Transfer(v, AuthorizedAccount("mallory"), "alice", "mallory", NewAmount("ABC", 100))
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, uint64(100), v.balances["ABC"]["alice"])
}

func TestTransferInsufficientBalance(t *testing.T) {
	v := newMapView()
	ledger := NewLedger("ABC", "gateway")
	require.NoError(t, ledger.Issue(v, AuthorizedAccount("gateway"), "alice", NewAmount("ABC", 10)))

	err := ledger.Transfer(v, AuthorizedAccount("alice"), "alice", "bob", NewAmount("ABC", 11))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	require.Equal(t, uint64(10), v.balances["ABC"]["alice"])
	require.Equal(t, uint64(0), v.balances["ABC"]["bob"])
}

func TestIssueOverflowRejected(t *testing.T) {
	v := newMapView()
	ledger := NewLedger("ABC", "gateway")
	require.NoError(t, ledger.Issue(v, AuthorizedAccount("gateway"), "alice", NewAmount("ABC", 1<<63)))

	// A second issue of the same size would wrap supply and balance
	// back to zero; it must fail and leave both untouched.
	err := ledger.Issue(v, AuthorizedAccount("gateway"), "alice", NewAmount("ABC", 1<<63))
	require.ErrorIs(t, err, ErrAmountOverflow)
	require.Equal(t, uint64(1)<<63, v.supplies["ABC"])
	require.Equal(t, uint64(1)<<63, v.balances["ABC"]["alice"])
}

func TestTransferCreditOverflowRejected(t *testing.T) {
	v := newMapView()
	ledger := NewLedger("ABC", "gateway")
	require.NoError(t, v.SetBalance("ABC", "alice", 100))
	require.NoError(t, v.SetBalance("ABC", "bob", ^uint64(0)-50))

	err := ledger.Transfer(v, AuthorizedAccount("alice"), "alice", "bob", NewAmount("ABC", 100))
	require.ErrorIs(t, err, ErrAmountOverflow)
	require.Equal(t, uint64(100), v.balances["ABC"]["alice"])
	require.Equal(t, ^uint64(0)-50, v.balances["ABC"]["bob"])
}

func TestTransferToSelfIsNoOp(t *testing.T) {
	v := newMapView()
	ledger := NewLedger("ABC", "gateway")
	require.NoError(t, ledger.Issue(v, AuthorizedAccount("gateway"), "alice", NewAmount("ABC", 10)))

	err := ledger.Transfer(v, AuthorizedAccount("alice"), "alice", "alice", NewAmount("ABC", 5))
	require.NoError(t, err)
	require.Equal(t, uint64(10), v.balances["ABC"]["alice"])
}

func TestAmountArithmetic(t *testing.T) {
	a := NewAmount("ABC", 10)
	b := NewAmount("ABC", 3)

	sum, err := a.Add(b)
	require.NoError(t, err)
	require.Equal(t, uint64(13), sum.Value)

	diff, err := a.Sub(b)
	require.NoError(t, err)
	require.Equal(t, uint64(7), diff.Value)

	_, err = b.Sub(a)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = a.Add(NewAmount("XYZ", 1))
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = NewAmount("ABC", ^uint64(0)).Add(NewAmount("ABC", 1))
	require.ErrorIs(t, err, ErrAmountOverflow)
}
