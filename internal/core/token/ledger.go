package token

import "fmt"

// Ledger owns balance and supply bookkeeping for a single currency.
// All mutation goes through Issue and Transfer; the conservation
// invariant supply == sum(balances) holds after every operation because
// Issue is the only supply mutation and it credits exactly what it adds.
//
// A Ledger holds no state of its own: every operation takes the state
// view it must act on, so one invocation's mutations stay confined to
// that invocation's overlay until the host commits.
type Ledger struct {
	currency Currency
	issuer   Account
}

// NewLedger creates the ledger capability for one currency. The issuer
// is the only account allowed to expand supply.
func NewLedger(currency Currency, issuer Account) *Ledger {
	return &Ledger{currency: currency, issuer: issuer}
}

// Currency returns the currency this ledger keeps books for.
func (l *Ledger) Currency() Currency { return l.currency }

// Issuer returns the currency's issuing account.
func (l *Ledger) Issuer() Account { return l.issuer }

// Issue expands supply by amount and delivers it to the recipient. The
// call must carry the issuer's authority. Supply is credited to the
// issuer's own balance first, then moved to the recipient with an
// internal transfer, mirroring the on-ledger issue action.
func (l *Ledger) Issue(v View, auth Authorizer, to Account, amount Amount) error {
	if err := l.checkCurrency(amount); err != nil {
		return err
	}
	if !auth.IsAuthorized(l.issuer) {
		return fmt.Errorf("%w: issue of %s requires %s", ErrUnauthorized, l.currency, l.issuer)
	}

	supply, err := v.Supply(l.currency)
	if err != nil {
		return err
	}
	newSupply, err := AddValues(supply, amount.Value)
	if err != nil {
		return err
	}
	if err := v.SetSupply(l.currency, newSupply); err != nil {
		return err
	}

	issuerBalance, err := v.Balance(l.currency, l.issuer)
	if err != nil {
		return err
	}
	newIssuerBalance, err := AddValues(issuerBalance, amount.Value)
	if err != nil {
		return err
	}
	if err := v.SetBalance(l.currency, l.issuer, newIssuerBalance); err != nil {
		return err
	}

	return l.move(v, l.issuer, to, amount.Value)
}

// Transfer moves amount from one account to another. The call must
// carry the sender's authority and fails without touching state if the
// sender's balance cannot cover the amount.
func (l *Ledger) Transfer(v View, auth Authorizer, from, to Account, amount Amount) error {
	if err := l.checkCurrency(amount); err != nil {
		return err
	}
	if !auth.IsAuthorized(from) {
		return fmt.Errorf("%w: transfer of %s requires %s", ErrUnauthorized, l.currency, from)
	}
	return l.move(v, from, to, amount.Value)
}

// BalanceOf returns the account's balance, zero if no record exists.
func (l *Ledger) BalanceOf(v View, a Account) (Amount, error) {
	value, err := v.Balance(l.currency, a)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Currency: l.currency, Value: value}, nil
}

// SupplyOf returns the currency's total supply.
func (l *Ledger) SupplyOf(v View) (Amount, error) {
	value, err := v.Supply(l.currency)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Currency: l.currency, Value: value}, nil
}

// move debits from and credits to, checking funds before any write.
func (l *Ledger) move(v View, from, to Account, value uint64) error {
	fromBalance, err := v.Balance(l.currency, from)
	if err != nil {
		return err
	}
	if fromBalance < value {
		return fmt.Errorf("%w: %s has %d %s, needs %d",
			ErrInsufficientBalance, from, fromBalance, l.currency, value)
	}

	if from == to {
		return nil
	}

	toBalance, err := v.Balance(l.currency, to)
	if err != nil {
		return err
	}
	newToBalance, err := AddValues(toBalance, value)
	if err != nil {
		return err
	}

	if err := v.SetBalance(l.currency, from, fromBalance-value); err != nil {
		return err
	}
	return v.SetBalance(l.currency, to, newToBalance)
}

func (l *Ledger) checkCurrency(amount Amount) error {
	if amount.Currency != l.currency {
		return fmt.Errorf("%w: ledger for %s given amount in %s",
			ErrCurrencyMismatch, l.currency, amount.Currency)
	}
	return nil
}
