// Package jsonrpc exposes the relay over a small JSON-RPC 2.0 surface:
// balance, supply and relay state queries plus event submission.
package jsonrpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tokenrelay/relayd/internal/core/event"
	"github.com/tokenrelay/relayd/internal/core/relay"
	"github.com/tokenrelay/relayd/internal/core/token"
)

// Server represents a JSON-RPC server.
type Server struct {
	handler *RelayHandler
}

// NewServer creates a new JSON-RPC server instance.
func NewServer(handler *RelayHandler) *Server {
	return &Server{handler: handler}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		JsonRPC string          `json:"jsonrpc"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params"`
		ID      interface{}     `json:"id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nil, -32700, "Parse error", nil)
		return
	}

	result, err := s.handler.Handle(r.Context(), req.Method, req.Params)
	if err != nil {
		writeError(w, req.ID, errorCode(err), err.Error(), nil)
		return
	}

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"result":  result,
		"id":      req.ID,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// errorCode maps the error taxonomy onto JSON-RPC error codes so
// clients can branch without parsing messages.
func errorCode(err error) int {
	switch {
	case errors.Is(err, relay.ErrMalformedRequest), errors.Is(err, event.ErrInvalidEvent):
		return -32602
	case errors.Is(err, token.ErrUnauthorized):
		return -32001
	case errors.Is(err, token.ErrInsufficientBalance):
		return -32002
	case errors.Is(err, relay.ErrDegenerateCurve):
		return -32003
	case errors.Is(err, relay.ErrSelfConversion):
		return -32004
	case errors.Is(err, relay.ErrSlippageExceeded):
		return -32005
	case errors.Is(err, relay.ErrUnexpectedNotification):
		return -32006
	case errors.Is(err, token.ErrAmountOverflow):
		return -32007
	default:
		return -32603
	}
}

func writeError(w http.ResponseWriter, id interface{}, code int, message string, data interface{}) {
	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
			"data":    data,
		},
		"id": id,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
