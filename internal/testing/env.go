// Package testing provides a self-contained relay environment for
// tests: an in-memory store, a configured executor and helpers for
// funding accounts and submitting events.
package testing

import (
	"context"
	"testing"

	"github.com/tokenrelay/relayd/internal/core/event"
	"github.com/tokenrelay/relayd/internal/core/relay"
	"github.com/tokenrelay/relayd/internal/core/token"
	"github.com/tokenrelay/relayd/internal/storage/database/memory"
	"github.com/tokenrelay/relayd/internal/storage/ledgerstore"
)

// Default test identities. The relay issues the relay currency itself;
// each connector currency has its own gateway issuer.
const (
	RelayAccount  = token.Account("relay")
	RelayCurrency = token.Currency("RELAY")

	CurrencyABC = token.Currency("ABC")
	CurrencyXYZ = token.Currency("XYZ")
	GatewayABC  = token.Account("abc-gateway")
	GatewayXYZ  = token.Account("xyz-gateway")
)

// TestEnv manages a relay environment for event testing.
type TestEnv struct {
	t      *testing.T
	ctx    context.Context
	store  *ledgerstore.Store
	engine *event.Engine

	applied []event.Event
}

// DefaultConfig is the two-connector setup most tests use, with the
// built-in half-weight curve on both connectors.
func DefaultConfig() event.Config {
	return event.Config{
		RelayAccount:  RelayAccount,
		RelayCurrency: RelayCurrency,
		Connectors: []event.ConnectorConfig{
			{Currency: CurrencyABC, Issuer: GatewayABC},
			{Currency: CurrencyXYZ, Issuer: GatewayXYZ},
		},
	}
}

// NewTestEnv creates a test environment with the default configuration.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	return NewTestEnvWithConfig(t, DefaultConfig())
}

// NewTestEnvWithConfig creates a test environment for a custom relay
// configuration.
func NewTestEnvWithConfig(t *testing.T, cfg event.Config) *TestEnv {
	t.Helper()

	ctx := context.Background()
	store, err := ledgerstore.Open(ctx, memory.NewDB(), 0)
	if err != nil {
		t.Fatalf("Failed to open ledger store: %v", err)
	}

	env := &TestEnv{t: t, ctx: ctx, store: store}

	engine, err := event.NewEngine(store, cfg,
		event.WithJournal(),
		event.WithAppliedHook(func(ev event.Event) {
			env.applied = append(env.applied, ev)
		}),
	)
	if err != nil {
		t.Fatalf("Failed to build engine: %v", err)
	}
	env.engine = engine

	return env
}

// Engine returns the executor under test.
func (e *TestEnv) Engine() *event.Engine { return e.engine }

// Store returns the backing ledger store.
func (e *TestEnv) Store() *ledgerstore.Store { return e.store }

// Applied returns the events committed so far, in order.
func (e *TestEnv) Applied() []event.Event { return e.applied }

// Apply submits one event and returns the executor's verdict.
func (e *TestEnv) Apply(ev event.Event) error {
	e.t.Helper()
	return e.engine.Apply(e.ctx, ev)
}

// Issue submits an issue event and fails the test on rejection.
func (e *TestEnv) Issue(currency token.Currency, to token.Account, amount uint64) {
	e.t.Helper()
	if err := e.Apply(&event.Issue{Currency: currency, To: to, Amount: amount}); err != nil {
		e.t.Fatalf("Issue %d %s to %s failed: %v", amount, currency, to, err)
	}
}

// Transfer submits a plain transfer event and fails the test on rejection.
func (e *TestEnv) Transfer(currency token.Currency, from, to token.Account, amount uint64) {
	e.t.Helper()
	if err := e.Apply(&event.Transfer{Currency: currency, From: from, To: to, Amount: amount}); err != nil {
		e.t.Fatalf("Transfer %d %s %s->%s failed: %v", amount, currency, from, to, err)
	}
}

// Convert submits a transfer to the relay carrying a conversion request
// and returns the executor's verdict without failing the test.
func (e *TestEnv) Convert(currency token.Currency, from token.Account, amount uint64, target token.Currency, minReturn uint64) error {
	e.t.Helper()
	memo, err := relay.EncodeRequest(relay.Request{Target: target, MinReturn: minReturn})
	if err != nil {
		e.t.Fatalf("Failed to encode conversion request: %v", err)
	}
	return e.Apply(&event.Transfer{
		Currency: currency,
		From:     from,
		To:       RelayAccount,
		Amount:   amount,
		Memo:     memo,
	})
}

// FundPool seeds one connector's relay pool: it issues connector tokens
// to the relay account and records the matching pool state. Tests use
// this to start from a known curve position.
func (e *TestEnv) FundPool(currency token.Currency, issuer token.Account, relaySupply, reserve uint64) {
	e.t.Helper()

	e.Issue(currency, RelayAccount, reserve)
	if err := e.store.ApplyChanges(e.ctx, []event.Change{
		{Kind: event.ChangeRelayState, Currency: currency,
			State: relay.State{Supply: relaySupply, Balance: reserve}},
	}); err != nil {
		e.t.Fatalf("Failed to seed relay state for %s: %v", currency, err)
	}
}

// Balance reads an account balance from the committed store.
func (e *TestEnv) Balance(currency token.Currency, account token.Account) uint64 {
	e.t.Helper()
	value, err := e.store.Balance(e.ctx, currency, account)
	if err != nil {
		e.t.Fatalf("Failed to read balance: %v", err)
	}
	return value
}

// Supply reads a currency supply from the committed store.
func (e *TestEnv) Supply(currency token.Currency) uint64 {
	e.t.Helper()
	value, err := e.store.Supply(e.ctx, currency)
	if err != nil {
		e.t.Fatalf("Failed to read supply: %v", err)
	}
	return value
}

// RelayState reads a connector's committed pool record.
func (e *TestEnv) RelayState(currency token.Currency) (relay.State, bool) {
	e.t.Helper()
	state, found, err := e.store.RelayState(e.ctx, currency)
	if err != nil {
		e.t.Fatalf("Failed to read relay state: %v", err)
	}
	return state, found
}
