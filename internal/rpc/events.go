// Package rpc provides the WebSocket stream of applied events. Clients
// subscribe per currency and receive a JSON record for every committed
// transfer or issue.
package rpc

import (
	"github.com/tokenrelay/relayd/internal/core/event"
)

// AppliedEvent is the JSON shape of one committed event on the stream.
type AppliedEvent struct {
	Type     string `json:"type"`
	Currency string `json:"currency"`
	From     string `json:"from,omitempty"`
	To       string `json:"to"`
	Amount   uint64 `json:"amount"`
	Memo     []byte `json:"memo,omitempty"`
}

// NewAppliedEvent converts a committed event into its stream record,
// nil for unknown event types.
func NewAppliedEvent(ev event.Event) *AppliedEvent {
	switch t := ev.(type) {
	case *event.Transfer:
		return &AppliedEvent{
			Type:     event.KindTransfer.String(),
			Currency: string(t.Currency),
			From:     string(t.From),
			To:       string(t.To),
			Amount:   t.Amount,
			Memo:     t.Memo,
		}
	case *event.Issue:
		return &AppliedEvent{
			Type:     event.KindIssue.String(),
			Currency: string(t.Currency),
			To:       string(t.To),
			Amount:   t.Amount,
		}
	default:
		return nil
	}
}
