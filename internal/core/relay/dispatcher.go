package relay

import (
	"fmt"

	"github.com/tokenrelay/relayd/internal/core/token"
)

// Notice describes a transfer the relay has been notified of. The
// balance move has already been applied by the currency's ledger when
// the dispatcher sees it.
type Notice struct {
	Currency token.Currency
	From     token.Account
	To       token.Account
	Amount   uint64
	Memo     []byte
}

// Dispatcher routes transfers arriving at the relay account into the
// correct conversion path and settles the result. It owns the relay
// state for the lifetime of one conversion: load, one or two curve
// operations, store, all against the same overlay view, so a failure
// anywhere leaves nothing behind.
type Dispatcher struct {
	relayAccount token.Account
	relayLedger  *token.Ledger
	ledgers      map[token.Currency]*token.Ledger
	connectors   map[token.Currency]*Connector

	// authority carries the relay account's own authority, used for the
	// outbound settlement transfer and the relay-token mint.
	authority token.Authorizer
}

// NewDispatcher builds the dispatcher for one relay. The relay ledger's
// issuer must be the relay account itself: conversion into the relay
// token settles by issuing fresh supply.
func NewDispatcher(relayAccount token.Account, relayLedger *token.Ledger, connectors []*Connector, ledgers map[token.Currency]*token.Ledger) (*Dispatcher, error) {
	if relayLedger.Issuer() != relayAccount {
		return nil, fmt.Errorf("relay ledger issuer %s is not the relay account %s",
			relayLedger.Issuer(), relayAccount)
	}
	d := &Dispatcher{
		relayAccount: relayAccount,
		relayLedger:  relayLedger,
		ledgers:      ledgers,
		connectors:   make(map[token.Currency]*Connector, len(connectors)),
		authority:    token.AuthorizedAccount(relayAccount),
	}
	for _, c := range connectors {
		if c.Currency() == relayLedger.Currency() {
			return nil, fmt.Errorf("connector %s shadows the relay currency", c.Currency())
		}
		if _, ok := ledgers[c.Currency()]; !ok {
			return nil, fmt.Errorf("no ledger for connector currency %s", c.Currency())
		}
		d.connectors[c.Currency()] = c
	}
	return d, nil
}

// RelayAccount returns the account conversions are addressed to.
func (d *Dispatcher) RelayAccount() token.Account { return d.relayAccount }

// RelayCurrency returns the relay token's currency.
func (d *Dispatcher) RelayCurrency() token.Currency { return d.relayLedger.Currency() }

// Connector returns the connector for a currency, nil if none.
func (d *Dispatcher) Connector(c token.Currency) *Connector { return d.connectors[c] }

// OnTransfer handles a transfer notification after the ledger has moved
// the funds. Transfers to the relay account start a conversion; plain
// relay-currency transfers between users pass through; the outbound leg
// of a settlement (sender is the relay account) is ignored. Anything
// else should never have been routed here.
func (d *Dispatcher) OnTransfer(v StateView, n Notice) error {
	if n.To != d.relayAccount {
		if n.Currency == d.RelayCurrency() {
			return nil // user-to-user relay transfer, ledger move only
		}
		if n.From == d.relayAccount {
			return nil // our own outbound settlement
		}
		return fmt.Errorf("%w: %s transfer %s -> %s", ErrUnexpectedNotification,
			n.Currency, n.From, n.To)
	}
	return d.startConvert(v, n)
}

// startConvert parses the attached request and loads state before
// dispatching to the proper conversion path.
func (d *Dispatcher) startConvert(v StateView, n Notice) error {
	req, err := DecodeRequest(n.Memo)
	if err != nil {
		return err
	}
	if req.Target == n.Currency {
		return fmt.Errorf("%w: %s", ErrSelfConversion, n.Currency)
	}

	if n.Currency == d.RelayCurrency() {
		return d.convertFromRelay(v, n, req)
	}
	return d.convertFromConnector(v, n, req)
}

// convertFromRelay redeems inbound relay tokens for the requested
// connector currency.
func (d *Dispatcher) convertFromRelay(v StateView, n Notice, req Request) error {
	conn := d.connectors[req.Target]
	if conn == nil {
		return fmt.Errorf("%w: no connector for target %s", ErrMalformedRequest, req.Target)
	}

	state, _, err := v.RelayState(conn.Currency())
	if err != nil {
		return err
	}
	output, err := conn.ConvertFromRelay(v, d.relayAccount, n.Amount, &state)
	if err != nil {
		return err
	}
	if output < req.MinReturn {
		return fmt.Errorf("%w: %d %s < minimum %d", ErrSlippageExceeded,
			output, req.Target, req.MinReturn)
	}
	if err := v.SetRelayState(conn.Currency(), state); err != nil {
		return err
	}
	return d.ledgers[req.Target].Transfer(v, d.authority, d.relayAccount, n.From,
		token.NewAmount(req.Target, output))
}

// convertFromConnector converts an inbound connector currency to relay
// tokens, and on to a second connector when the target is not the relay
// currency itself. In the two-hop case the relay tokens are an
// unobserved intermediate: computed, never transferred.
func (d *Dispatcher) convertFromConnector(v StateView, n Notice, req Request) error {
	source := d.connectors[n.Currency]
	if source == nil {
		return fmt.Errorf("%w: %s is not a connector currency", ErrUnexpectedNotification, n.Currency)
	}

	sourceState, _, err := v.RelayState(source.Currency())
	if err != nil {
		return err
	}
	relayOut, err := source.ConvertToRelay(v, d.relayAccount, n.Amount, &sourceState)
	if err != nil {
		return err
	}

	if req.Target == d.RelayCurrency() {
		if relayOut < req.MinReturn {
			return fmt.Errorf("%w: %d %s < minimum %d", ErrSlippageExceeded,
				relayOut, req.Target, req.MinReturn)
		}
		if err := v.SetRelayState(source.Currency(), sourceState); err != nil {
			return err
		}
		// Settle by minting: the relay account issues the freshly priced
		// supply straight to the trader.
		return d.relayLedger.Issue(v, d.authority, n.From,
			token.NewAmount(d.RelayCurrency(), relayOut))
	}

	target := d.connectors[req.Target]
	if target == nil {
		return fmt.Errorf("%w: no connector for target %s", ErrMalformedRequest, req.Target)
	}

	targetState, _, err := v.RelayState(target.Currency())
	if err != nil {
		return err
	}
	output, err := target.ConvertFromRelay(v, d.relayAccount, relayOut, &targetState)
	if err != nil {
		return err
	}
	if output < req.MinReturn {
		return fmt.Errorf("%w: %d %s < minimum %d", ErrSlippageExceeded,
			output, req.Target, req.MinReturn)
	}
	if err := v.SetRelayState(source.Currency(), sourceState); err != nil {
		return err
	}
	if err := v.SetRelayState(target.Currency(), targetState); err != nil {
		return err
	}
	return d.ledgers[req.Target].Transfer(v, d.authority, d.relayAccount, n.From,
		token.NewAmount(req.Target, output))
}
