package event

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/tokenrelay/relayd/internal/core/relay"
	"github.com/tokenrelay/relayd/internal/core/token"
)

// ErrConservation is returned when an event's net balance changes do
// not match its supply change for some currency. It indicates a bug in
// a handler, never a user error.
var ErrConservation = errors.New("supply does not match balances")

// ChangeKind discriminates the record types a committed event can touch.
type ChangeKind int

const (
	ChangeBalance ChangeKind = iota
	ChangeSupply
	ChangeRelayState
	ChangeJournal
)

// Change is one record mutation produced by an applied event. The store
// applies a change list atomically.
type Change struct {
	Kind     ChangeKind
	Currency token.Currency
	Account  token.Account // balance changes only
	Value    uint64        // balance and supply changes
	State    relay.State   // relay-state changes only
	Journal  []byte        // journal appends only
}

// Store is the durable side of the ledger store as the executor sees
// it: plain reads plus one atomic change application. Durability is
// only guaranteed once ApplyChanges returns.
type Store interface {
	Balance(ctx context.Context, c token.Currency, a token.Account) (uint64, error)
	Supply(ctx context.Context, c token.Currency) (uint64, error)
	RelayState(ctx context.Context, c token.Currency) (relay.State, bool, error)
	ApplyChanges(ctx context.Context, changes []Change) error
}

// StateTable overlays a Store with the uncommitted reads and writes of
// one invocation. Handlers see their own writes; nothing reaches the
// store until Changes() is taken and applied, so a failed invocation
// discards the table and leaves the store untouched.
type StateTable struct {
	ctx  context.Context
	base Store

	balances map[balanceKey]*trackedValue
	supplies map[token.Currency]*trackedValue
	relays   map[token.Currency]*trackedState
}

type balanceKey struct {
	currency token.Currency
	account  token.Account
}

type trackedValue struct {
	original uint64
	current  uint64
	dirty    bool
}

type trackedState struct {
	original    relay.State
	hadOriginal bool
	current     relay.State
	dirty       bool
}

// NewStateTable creates an empty overlay over the given store.
func NewStateTable(ctx context.Context, base Store) *StateTable {
	return &StateTable{
		ctx:      ctx,
		base:     base,
		balances: make(map[balanceKey]*trackedValue),
		supplies: make(map[token.Currency]*trackedValue),
		relays:   make(map[token.Currency]*trackedState),
	}
}

func (t *StateTable) Balance(c token.Currency, a token.Account) (uint64, error) {
	entry, err := t.balanceEntry(c, a)
	if err != nil {
		return 0, err
	}
	return entry.current, nil
}

func (t *StateTable) SetBalance(c token.Currency, a token.Account, v uint64) error {
	entry, err := t.balanceEntry(c, a)
	if err != nil {
		return err
	}
	entry.current = v
	entry.dirty = true
	return nil
}

func (t *StateTable) Supply(c token.Currency) (uint64, error) {
	entry, err := t.supplyEntry(c)
	if err != nil {
		return 0, err
	}
	return entry.current, nil
}

func (t *StateTable) SetSupply(c token.Currency, v uint64) error {
	entry, err := t.supplyEntry(c)
	if err != nil {
		return err
	}
	entry.current = v
	entry.dirty = true
	return nil
}

func (t *StateTable) RelayState(c token.Currency) (relay.State, bool, error) {
	entry, err := t.relayEntry(c)
	if err != nil {
		return relay.State{}, false, err
	}
	return entry.current, entry.hadOriginal || entry.dirty, nil
}

func (t *StateTable) SetRelayState(c token.Currency, s relay.State) error {
	entry, err := t.relayEntry(c)
	if err != nil {
		return err
	}
	entry.current = s
	entry.dirty = true
	return nil
}

func (t *StateTable) balanceEntry(c token.Currency, a token.Account) (*trackedValue, error) {
	key := balanceKey{currency: c, account: a}
	if entry, ok := t.balances[key]; ok {
		return entry, nil
	}
	value, err := t.base.Balance(t.ctx, c, a)
	if err != nil {
		return nil, err
	}
	entry := &trackedValue{original: value, current: value}
	t.balances[key] = entry
	return entry, nil
}

func (t *StateTable) supplyEntry(c token.Currency) (*trackedValue, error) {
	if entry, ok := t.supplies[c]; ok {
		return entry, nil
	}
	value, err := t.base.Supply(t.ctx, c)
	if err != nil {
		return nil, err
	}
	entry := &trackedValue{original: value, current: value}
	t.supplies[c] = entry
	return entry, nil
}

func (t *StateTable) relayEntry(c token.Currency) (*trackedState, error) {
	if entry, ok := t.relays[c]; ok {
		return entry, nil
	}
	state, found, err := t.base.RelayState(t.ctx, c)
	if err != nil {
		return nil, err
	}
	entry := &trackedState{original: state, hadOriginal: found, current: state}
	t.relays[c] = entry
	return entry, nil
}

// Changes returns the dirty entries as an ordered change list, checking
// the conservation invariant first: for every currency the net balance
// delta must equal the supply delta. Ordering is deterministic so the
// committed batch is reproducible.
func (t *StateTable) Changes() ([]Change, error) {
	if err := t.checkConservation(); err != nil {
		return nil, err
	}

	var changes []Change

	supplyCurrencies := make([]token.Currency, 0, len(t.supplies))
	for c, entry := range t.supplies {
		if entry.dirty {
			supplyCurrencies = append(supplyCurrencies, c)
		}
	}
	sort.Slice(supplyCurrencies, func(i, j int) bool { return supplyCurrencies[i] < supplyCurrencies[j] })
	for _, c := range supplyCurrencies {
		changes = append(changes, Change{Kind: ChangeSupply, Currency: c, Value: t.supplies[c].current})
	}

	balanceKeys := make([]balanceKey, 0, len(t.balances))
	for key, entry := range t.balances {
		if entry.dirty {
			balanceKeys = append(balanceKeys, key)
		}
	}
	sort.Slice(balanceKeys, func(i, j int) bool {
		if balanceKeys[i].currency != balanceKeys[j].currency {
			return balanceKeys[i].currency < balanceKeys[j].currency
		}
		return balanceKeys[i].account < balanceKeys[j].account
	})
	for _, key := range balanceKeys {
		changes = append(changes, Change{
			Kind:     ChangeBalance,
			Currency: key.currency,
			Account:  key.account,
			Value:    t.balances[key].current,
		})
	}

	relayCurrencies := make([]token.Currency, 0, len(t.relays))
	for c, entry := range t.relays {
		if entry.dirty {
			relayCurrencies = append(relayCurrencies, c)
		}
	}
	sort.Slice(relayCurrencies, func(i, j int) bool { return relayCurrencies[i] < relayCurrencies[j] })
	for _, c := range relayCurrencies {
		changes = append(changes, Change{Kind: ChangeRelayState, Currency: c, State: t.relays[c].current})
	}

	return changes, nil
}

// checkConservation verifies supply == sum(balances) per currency, in
// delta form over the entries this invocation touched.
func (t *StateTable) checkConservation() error {
	balanceDelta := make(map[token.Currency]int64)
	for key, entry := range t.balances {
		if entry.dirty {
			balanceDelta[key.currency] += int64(entry.current) - int64(entry.original)
		}
	}
	supplyDelta := make(map[token.Currency]int64)
	for c, entry := range t.supplies {
		if entry.dirty {
			supplyDelta[c] = int64(entry.current) - int64(entry.original)
		}
	}
	for c, delta := range balanceDelta {
		if delta != supplyDelta[c] {
			return fmt.Errorf("%w: %s balances moved %+d, supply %+d",
				ErrConservation, c, delta, supplyDelta[c])
		}
	}
	for c, delta := range supplyDelta {
		if _, seen := balanceDelta[c]; !seen && delta != 0 {
			return fmt.Errorf("%w: %s supply moved %+d with no balance change",
				ErrConservation, c, delta)
		}
	}
	return nil
}
