package event

import (
	"context"
	"fmt"

	"github.com/tokenrelay/relayd/internal/core/relay"
	"github.com/tokenrelay/relayd/internal/core/token"
	"github.com/ugorji/go/codec"
)

// ConnectorConfig declares one connector currency of the relay.
type ConnectorConfig struct {
	Currency token.Currency
	Issuer   token.Account
	Weight   uint64
	Base     uint64
}

// Config declares the currencies and relay the engine executes against.
// The relay currency is issued by the relay account itself.
type Config struct {
	RelayAccount  token.Account
	RelayCurrency token.Currency
	Connectors    []ConnectorConfig
}

// HandlerFunc applies one event against an invocation's state view.
type HandlerFunc func(v relay.StateView, ev Event) error

type routeKey struct {
	currency token.Currency
	kind     Kind
}

// AppliedFunc observes events after their changes have committed.
type AppliedFunc func(ev Event)

// Option configures an Engine.
type Option func(*Engine)

// WithAuthorizer replaces the default host-attested authority with an
// external authorization collaborator applied to every event.
func WithAuthorizer(auth token.Authorizer) Option {
	return func(e *Engine) {
		e.authorize = func(Event) token.Authorizer { return auth }
	}
}

// WithAppliedHook registers an observer invoked after each commit.
func WithAppliedHook(fn AppliedFunc) Option {
	return func(e *Engine) {
		e.hooks = append(e.hooks, fn)
	}
}

// WithJournal enables appending a record of every applied event to the
// store's journal.
func WithJournal() Option {
	return func(e *Engine) {
		e.journal = true
	}
}

// Engine is the deterministic executor: it routes each incoming event
// through a table keyed by (currency, event kind), applies the handler
// against a fresh state overlay, and commits the overlay atomically.
// Any handler error discards the overlay, so a failed invocation leaves
// the store exactly as it was.
//
// The engine assumes the host serializes invocations per relay; it does
// no locking of its own.
type Engine struct {
	store      Store
	routes     map[routeKey]HandlerFunc
	dispatcher *relay.Dispatcher
	ledgers    map[token.Currency]*token.Ledger
	authorize  func(ev Event) token.Authorizer
	hooks      []AppliedFunc
	journal    bool
}

// NewEngine builds the executor for one relay configuration.
func NewEngine(store Store, cfg Config, opts ...Option) (*Engine, error) {
	if cfg.RelayAccount == "" || cfg.RelayCurrency == "" {
		return nil, fmt.Errorf("engine config missing relay account or currency")
	}

	relayLedger := token.NewLedger(cfg.RelayCurrency, cfg.RelayAccount)
	ledgers := map[token.Currency]*token.Ledger{
		cfg.RelayCurrency: relayLedger,
	}

	connectors := make([]*relay.Connector, 0, len(cfg.Connectors))
	for _, cc := range cfg.Connectors {
		weight, base := cc.Weight, cc.Base
		if weight == 0 && base == 0 {
			weight, base = relay.DefaultWeight, relay.DefaultBase
		}
		conn, err := relay.NewConnector(cc.Currency, weight, base)
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, conn)
		ledgers[cc.Currency] = token.NewLedger(cc.Currency, cc.Issuer)
	}

	dispatcher, err := relay.NewDispatcher(cfg.RelayAccount, relayLedger, connectors, ledgers)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:      store,
		routes:     make(map[routeKey]HandlerFunc),
		dispatcher: dispatcher,
		ledgers:    ledgers,
	}
	e.authorize = e.hostAttested

	for currency, ledger := range ledgers {
		e.routes[routeKey{currency, KindTransfer}] = e.transferHandler(ledger)
		e.routes[routeKey{currency, KindIssue}] = e.issueHandler(ledger)
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Dispatcher exposes the conversion dispatcher, mainly for queries.
func (e *Engine) Dispatcher() *relay.Dispatcher { return e.dispatcher }

// Ledger returns the ledger capability for a currency, nil if unknown.
func (e *Engine) Ledger(c token.Currency) *token.Ledger { return e.ledgers[c] }

// Apply executes one event to completion or not at all. The returned
// error carries one of the taxonomy sentinels; on error no state has
// changed.
func (e *Engine) Apply(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	handler, ok := e.routes[routeKey{ev.EventCurrency(), ev.EventKind()}]
	if !ok {
		return fmt.Errorf("%w: no handler for %s %s", relay.ErrUnexpectedNotification,
			ev.EventCurrency(), ev.EventKind())
	}

	table := NewStateTable(ctx, e.store)
	if err := handler(table, ev); err != nil {
		return err // overlay discarded, store untouched
	}

	changes, err := table.Changes()
	if err != nil {
		return err
	}
	if e.journal {
		record, err := encodeJournalRecord(ev)
		if err != nil {
			return err
		}
		changes = append(changes, Change{Kind: ChangeJournal, Journal: record})
	}

	if err := e.store.ApplyChanges(ctx, changes); err != nil {
		return err
	}
	for _, hook := range e.hooks {
		hook(ev)
	}
	return nil
}

// hostAttested derives authority from the event itself: the host has
// already validated the signature behind it.
func (e *Engine) hostAttested(ev Event) token.Authorizer {
	switch t := ev.(type) {
	case *Transfer:
		return token.AuthorizedAccount(t.From)
	case *Issue:
		if ledger := e.ledgers[t.Currency]; ledger != nil {
			return token.AuthorizedAccount(ledger.Issuer())
		}
	}
	return token.AuthorizedAccount("")
}

func (e *Engine) transferHandler(ledger *token.Ledger) HandlerFunc {
	return func(v relay.StateView, ev Event) error {
		t := ev.(*Transfer)
		amount := token.NewAmount(t.Currency, t.Amount)
		if err := ledger.Transfer(v, e.authorize(ev), t.From, t.To, amount); err != nil {
			return err
		}

		// The relay currency's handler is the relay itself and always
		// sees its transfers; other currencies notify the relay only
		// when it is an endpoint.
		relayAccount := e.dispatcher.RelayAccount()
		if t.Currency != e.dispatcher.RelayCurrency() &&
			t.To != relayAccount && t.From != relayAccount {
			return nil
		}
		return e.dispatcher.OnTransfer(v, relay.Notice{
			Currency: t.Currency,
			From:     t.From,
			To:       t.To,
			Amount:   t.Amount,
			Memo:     t.Memo,
		})
	}
}

func (e *Engine) issueHandler(ledger *token.Ledger) HandlerFunc {
	return func(v relay.StateView, ev Event) error {
		i := ev.(*Issue)
		amount := token.NewAmount(i.Currency, i.Amount)
		return ledger.Issue(v, e.authorize(ev), i.To, amount)
	}
}

// journalRecord is the CBOR shape of an applied event in the journal.
type journalRecord struct {
	Kind     uint8  `codec:"kind"`
	Currency string `codec:"currency"`
	From     string `codec:"from,omitempty"`
	To       string `codec:"to"`
	Amount   uint64 `codec:"amount"`
	Memo     []byte `codec:"memo,omitempty"`
}

var journalHandle = func() *codec.CborHandle {
	h := new(codec.CborHandle)
	h.Canonical = true
	return h
}()

func encodeJournalRecord(ev Event) ([]byte, error) {
	var rec journalRecord
	switch t := ev.(type) {
	case *Transfer:
		rec = journalRecord{
			Kind:     uint8(KindTransfer),
			Currency: string(t.Currency),
			From:     string(t.From),
			To:       string(t.To),
			Amount:   t.Amount,
			Memo:     t.Memo,
		}
	case *Issue:
		rec = journalRecord{
			Kind:     uint8(KindIssue),
			Currency: string(t.Currency),
			To:       string(t.To),
			Amount:   t.Amount,
		}
	default:
		return nil, fmt.Errorf("%w: unknown event type %T", ErrInvalidEvent, ev)
	}

	var out []byte
	enc := codec.NewEncoderBytes(&out, journalHandle)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return out, nil
}
