package relay

import "github.com/tokenrelay/relayd/internal/core/token"

// State is the mutable record of one relay/connector pair: the relay
// tokens in circulation against this connector, and the relay-held
// balance on the relay side of the pair. Every conversion through the
// connector reads, mutates and writes it as a single unit.
type State struct {
	// Supply is the relay-token supply in circulation for this pair.
	Supply uint64

	// Balance is the relay-side balance backing that supply.
	Balance uint64
}

// StateView extends the token view with relay-state records, one per
// connector currency.
type StateView interface {
	token.View

	// RelayState returns the pair state for a connector currency. The
	// second result is false when no record exists yet.
	RelayState(c token.Currency) (State, bool, error)

	// SetRelayState writes the pair state for a connector currency.
	SetRelayState(c token.Currency, s State) error
}
