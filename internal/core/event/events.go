// Package event models the external transfer/issue notifications the
// system consumes and the deterministic executor that applies them.
// Each event is applied exactly once; all state changes from one event
// commit atomically or not at all.
package event

import (
	"errors"
	"fmt"

	"github.com/tokenrelay/relayd/internal/core/token"
)

// ErrInvalidEvent is returned for events that fail structural validation
// before any state is touched.
var ErrInvalidEvent = errors.New("invalid event")

// Kind discriminates the event types the executor routes on.
type Kind uint8

const (
	KindTransfer Kind = iota + 1
	KindIssue
)

func (k Kind) String() string {
	switch k {
	case KindTransfer:
		return "transfer"
	case KindIssue:
		return "issue"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Event is an immutable record of a requested balance movement. Events
// are created by the host's notification of an external transaction and
// consumed exactly once.
type Event interface {
	EventKind() Kind
	EventCurrency() token.Currency
	Validate() error
}

// Transfer describes a balance move between two accounts, optionally
// carrying memo bytes. When the destination is the relay account the
// memo must decode to a conversion request.
type Transfer struct {
	Currency token.Currency
	From     token.Account
	To       token.Account
	Amount   uint64
	Memo     []byte
}

func (t *Transfer) EventKind() Kind                { return KindTransfer }
func (t *Transfer) EventCurrency() token.Currency { return t.Currency }

func (t *Transfer) Validate() error {
	if t.Currency == "" {
		return fmt.Errorf("%w: transfer missing currency", ErrInvalidEvent)
	}
	if t.From == "" || t.To == "" {
		return fmt.Errorf("%w: transfer missing account", ErrInvalidEvent)
	}
	if t.Amount == 0 {
		return fmt.Errorf("%w: zero transfer amount", ErrInvalidEvent)
	}
	return nil
}

// Issue describes a supply expansion delivered to a recipient. Only the
// currency's issuing account may authorize it.
type Issue struct {
	Currency token.Currency
	To       token.Account
	Amount   uint64
}

func (i *Issue) EventKind() Kind                { return KindIssue }
func (i *Issue) EventCurrency() token.Currency { return i.Currency }

func (i *Issue) Validate() error {
	if i.Currency == "" {
		return fmt.Errorf("%w: issue missing currency", ErrInvalidEvent)
	}
	if i.To == "" {
		return fmt.Errorf("%w: issue missing recipient", ErrInvalidEvent)
	}
	if i.Amount == 0 {
		return fmt.Errorf("%w: zero issue amount", ErrInvalidEvent)
	}
	return nil
}
