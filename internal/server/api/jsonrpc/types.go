package jsonrpc

// BalanceParams requests one account balance.
type BalanceParams struct {
	Currency string `json:"currency"`
	Account  string `json:"account"`
}

// BalanceResult is the balance query response.
type BalanceResult struct {
	Currency string `json:"currency"`
	Account  string `json:"account"`
	Balance  uint64 `json:"balance"`
}

// SupplyParams requests one currency's total supply.
type SupplyParams struct {
	Currency string `json:"currency"`
}

// SupplyResult is the supply query response.
type SupplyResult struct {
	Currency string `json:"currency"`
	Supply   uint64 `json:"supply"`
}

// RelayStateParams requests the relay pool record for a connector.
type RelayStateParams struct {
	Currency string `json:"currency"`
}

// RelayStateResult is the relay state query response. Found is false
// when the currency has no pool record yet.
type RelayStateResult struct {
	Currency string `json:"currency"`
	Supply   uint64 `json:"supply"`
	Balance  uint64 `json:"balance"`
	Found    bool   `json:"found"`
}

// ConvertParams is the optional conversion intent attached to a
// transfer submission. It is encoded into the transfer memo.
type ConvertParams struct {
	Target    string `json:"target"`
	MinReturn uint64 `json:"min_return"`
}

// TransferParams submits a transfer event. Memo carries raw memo bytes
// (base64 in JSON); Convert, when present, overrides Memo with an
// encoded conversion request.
type TransferParams struct {
	Currency string         `json:"currency"`
	From     string         `json:"from"`
	To       string         `json:"to"`
	Amount   uint64         `json:"amount"`
	Memo     []byte         `json:"memo,omitempty"`
	Convert  *ConvertParams `json:"convert,omitempty"`
}

// IssueParams submits an issue event.
type IssueParams struct {
	Currency string `json:"currency"`
	To       string `json:"to"`
	Amount   uint64 `json:"amount"`
}

// SubmitResult acknowledges an applied event.
type SubmitResult struct {
	Status string `json:"status"`
}

// JournalParams pages through the applied-event journal.
type JournalParams struct {
	Start uint64 `json:"start"`
	Limit int    `json:"limit"`
}

// JournalResult returns raw journal records (base64 CBOR in JSON).
type JournalResult struct {
	Start   uint64   `json:"start"`
	Entries [][]byte `json:"entries"`
}
