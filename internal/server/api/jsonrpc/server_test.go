package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tokenrelay/relayd/internal/core/event"
	"github.com/tokenrelay/relayd/internal/storage/database/memory"
	"github.com/tokenrelay/relayd/internal/storage/ledgerstore"
)

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	ID interface{} `json:"id"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := ledgerstore.Open(context.Background(), memory.NewDB(), 0)
	require.NoError(t, err)

	engine, err := event.NewEngine(store, event.Config{
		RelayAccount:  "relay",
		RelayCurrency: "RELAY",
		Connectors: []event.ConnectorConfig{
			{Currency: "ABC", Issuer: "gateway"},
		},
	})
	require.NoError(t, err)

	server := httptest.NewServer(NewServer(NewRelayHandler(engine, store, store)))
	t.Cleanup(server.Close)
	return server
}

func call(t *testing.T, server *httptest.Server, method string, params interface{}) rpcResponse {
	t.Helper()

	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      1,
	})
	require.NoError(t, err)

	resp, err := http.Post(server.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}

func TestSubmitAndQuery(t *testing.T) {
	server := newTestServer(t)

	resp := call(t, server, "submit_issue", IssueParams{Currency: "ABC", To: "alice", Amount: 100})
	require.Nil(t, resp.Error)

	resp = call(t, server, "submit_transfer", TransferParams{
		Currency: "ABC", From: "alice", To: "bob", Amount: 30,
	})
	require.Nil(t, resp.Error)

	resp = call(t, server, "balance", BalanceParams{Currency: "ABC", Account: "bob"})
	require.Nil(t, resp.Error)
	var balance BalanceResult
	require.NoError(t, json.Unmarshal(resp.Result, &balance))
	require.Equal(t, uint64(30), balance.Balance)

	resp = call(t, server, "supply", SupplyParams{Currency: "ABC"})
	require.Nil(t, resp.Error)
	var supply SupplyResult
	require.NoError(t, json.Unmarshal(resp.Result, &supply))
	require.Equal(t, uint64(100), supply.Supply)
}

func TestRelayStateAbsent(t *testing.T) {
	server := newTestServer(t)

	resp := call(t, server, "relay_state", RelayStateParams{Currency: "ABC"})
	require.Nil(t, resp.Error)

	var state RelayStateResult
	require.NoError(t, json.Unmarshal(resp.Result, &state))
	require.False(t, state.Found)
}

func TestErrorCodes(t *testing.T) {
	server := newTestServer(t)

	// Insufficient balance surfaces its own code.
	resp := call(t, server, "submit_transfer", TransferParams{
		Currency: "ABC", From: "alice", To: "bob", Amount: 1,
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, -32002, resp.Error.Code)

	// Structurally invalid events map to invalid-params.
	resp = call(t, server, "submit_transfer", TransferParams{Currency: "ABC"})
	require.NotNil(t, resp.Error)
	require.Equal(t, -32602, resp.Error.Code)

	// Unknown currencies are unexpected notifications.
	resp = call(t, server, "submit_transfer", TransferParams{
		Currency: "DOGE", From: "alice", To: "bob", Amount: 1,
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, -32006, resp.Error.Code)
}

func TestUnknownMethod(t *testing.T) {
	server := newTestServer(t)
	resp := call(t, server, "no_such_method", nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, -32603, resp.Error.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestConvertParamsEncodeMemo(t *testing.T) {
	server := newTestServer(t)

	resp := call(t, server, "submit_issue", IssueParams{Currency: "ABC", To: "alice", Amount: 100})
	require.Nil(t, resp.Error)

	// Conversion against an unseeded pool: the request reaches the
	// dispatcher (so the memo decoded) and fails on the empty curve.
	resp = call(t, server, "submit_transfer", TransferParams{
		Currency: "ABC", From: "alice", To: "relay", Amount: 50,
		Convert: &ConvertParams{Target: "RELAY"},
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, -32003, resp.Error.Code)
}
