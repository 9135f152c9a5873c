package token

// View is the balance/supply slice of the state store handle threaded
// through every ledger operation. Reads of absent records return zero;
// reading never creates a stored record.
type View interface {
	Balance(c Currency, a Account) (uint64, error)
	SetBalance(c Currency, a Account, v uint64) error
	Supply(c Currency) (uint64, error)
	SetSupply(c Currency, v uint64) error
}

// Authorizer answers whether the current invocation carries the
// authority of an account. The host runtime validates signatures before
// events reach this system, so implementations are typically derived
// from the triggering event.
type Authorizer interface {
	IsAuthorized(a Account) bool
}

// AuthorizedAccount returns an Authorizer granting the authority of
// exactly one account.
func AuthorizedAccount(a Account) Authorizer {
	return accountAuthority(a)
}

type accountAuthority Account

func (s accountAuthority) IsAuthorized(a Account) bool {
	return Account(s) == a
}
