package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tokenrelay/relayd/internal/core/event"
	"github.com/tokenrelay/relayd/internal/core/relay"
	"github.com/tokenrelay/relayd/internal/core/token"
)

// JournalReader is the optional journal query surface; nil disables
// the journal method.
type JournalReader interface {
	JournalEntries(ctx context.Context, start uint64, limit int) ([][]byte, error)
}

// RelayHandler handles the relay JSON-RPC methods.
type RelayHandler struct {
	engine  *event.Engine
	store   event.Store
	journal JournalReader

	methods map[string]func(ctx context.Context, params json.RawMessage) (interface{}, error)
}

// NewRelayHandler initializes a new RelayHandler instance.
func NewRelayHandler(engine *event.Engine, store event.Store, journal JournalReader) *RelayHandler {
	h := &RelayHandler{
		engine:  engine,
		store:   store,
		journal: journal,
		methods: make(map[string]func(ctx context.Context, params json.RawMessage) (interface{}, error)),
	}

	h.methods["balance"] = h.handleBalance
	h.methods["supply"] = h.handleSupply
	h.methods["relay_state"] = h.handleRelayState
	h.methods["submit_transfer"] = h.handleSubmitTransfer
	h.methods["submit_issue"] = h.handleSubmitIssue
	if journal != nil {
		h.methods["journal"] = h.handleJournal
	}

	return h
}

// Handle dispatches a JSON-RPC method to the appropriate handler.
func (h *RelayHandler) Handle(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	handler, exists := h.methods[method]
	if !exists {
		return nil, fmt.Errorf("method %s not found", method)
	}
	return handler(ctx, params)
}

func decodeParams(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing params", relay.ErrMalformedRequest)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", relay.ErrMalformedRequest, err)
	}
	return nil
}

func (h *RelayHandler) handleBalance(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p BalanceParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	balance, err := h.store.Balance(ctx, token.Currency(p.Currency), token.Account(p.Account))
	if err != nil {
		return nil, err
	}
	return BalanceResult{Currency: p.Currency, Account: p.Account, Balance: balance}, nil
}

func (h *RelayHandler) handleSupply(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p SupplyParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	supply, err := h.store.Supply(ctx, token.Currency(p.Currency))
	if err != nil {
		return nil, err
	}
	return SupplyResult{Currency: p.Currency, Supply: supply}, nil
}

func (h *RelayHandler) handleRelayState(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p RelayStateParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	state, found, err := h.store.RelayState(ctx, token.Currency(p.Currency))
	if err != nil {
		return nil, err
	}
	return RelayStateResult{
		Currency: p.Currency,
		Supply:   state.Supply,
		Balance:  state.Balance,
		Found:    found,
	}, nil
}

func (h *RelayHandler) handleSubmitTransfer(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p TransferParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	memo := p.Memo
	if p.Convert != nil {
		encoded, err := relay.EncodeRequest(relay.Request{
			Target:    token.Currency(p.Convert.Target),
			MinReturn: p.Convert.MinReturn,
		})
		if err != nil {
			return nil, err
		}
		memo = encoded
	}

	ev := &event.Transfer{
		Currency: token.Currency(p.Currency),
		From:     token.Account(p.From),
		To:       token.Account(p.To),
		Amount:   p.Amount,
		Memo:     memo,
	}
	if err := h.engine.Apply(ctx, ev); err != nil {
		return nil, err
	}
	return SubmitResult{Status: "applied"}, nil
}

func (h *RelayHandler) handleSubmitIssue(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p IssueParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	ev := &event.Issue{
		Currency: token.Currency(p.Currency),
		To:       token.Account(p.To),
		Amount:   p.Amount,
	}
	if err := h.engine.Apply(ctx, ev); err != nil {
		return nil, err
	}
	return SubmitResult{Status: "applied"}, nil
}

func (h *RelayHandler) handleJournal(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p JournalParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Limit <= 0 || p.Limit > 1000 {
		p.Limit = 1000
	}
	entries, err := h.journal.JournalEntries(ctx, p.Start, p.Limit)
	if err != nil {
		return nil, err
	}
	return JournalResult{Start: p.Start, Entries: entries}, nil
}
