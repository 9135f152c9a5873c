package rpc

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout   = 10 * time.Second
	readTimeout    = 60 * time.Second
	pingInterval   = 54 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// StreamServer handles WebSocket connections for applied-event
// subscriptions.
type StreamServer struct {
	upgrader websocket.Upgrader

	mu          sync.RWMutex
	connections map[string]*streamConnection

	nextID atomic.Uint64
}

// streamConnection represents a single WebSocket connection. An empty
// currencies set means the connection receives every event.
type streamConnection struct {
	id         string
	conn       *websocket.Conn
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once

	mu         sync.RWMutex
	currencies map[string]bool
}

// streamCommand is the client-to-server message shape.
type streamCommand struct {
	Command    string   `json:"command"` // subscribe or unsubscribe
	Currencies []string `json:"currencies,omitempty"`
}

type streamAck struct {
	Status  string `json:"status"`
	Command string `json:"command,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewStreamServer creates a new WebSocket stream server.
func NewStreamServer() *StreamServer {
	return &StreamServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		connections: make(map[string]*streamConnection),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (s *StreamServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	sc := &streamConnection{
		id:         strconv.FormatUint(s.nextID.Add(1), 10),
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		currencies: make(map[string]bool),
	}

	s.mu.Lock()
	s.connections[sc.id] = sc
	s.mu.Unlock()

	go s.readLoop(sc)
	go s.writeLoop(sc)
}

func (s *StreamServer) readLoop(sc *streamConnection) {
	defer s.closeConnection(sc)

	sc.conn.SetReadLimit(maxMessageSize)
	sc.conn.SetReadDeadline(time.Now().Add(readTimeout))
	sc.conn.SetPongHandler(func(string) error {
		sc.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, message, err := sc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		s.handleCommand(sc, message)
	}
}

func (s *StreamServer) writeLoop(sc *streamConnection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sc.done:
			return
		case <-ticker.C:
			sc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := sc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.closeConnection(sc)
				return
			}
		case message := <-sc.send:
			sc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := sc.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.closeConnection(sc)
				return
			}
		}
	}
}

func (s *StreamServer) handleCommand(sc *streamConnection, message []byte) {
	var cmd streamCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.sendAck(sc, streamAck{Status: "error", Error: "invalid JSON: " + err.Error()})
		return
	}

	switch cmd.Command {
	case "subscribe":
		sc.mu.Lock()
		for _, c := range cmd.Currencies {
			sc.currencies[c] = true
		}
		sc.mu.Unlock()
	case "unsubscribe":
		sc.mu.Lock()
		if len(cmd.Currencies) == 0 {
			sc.currencies = make(map[string]bool)
		}
		for _, c := range cmd.Currencies {
			delete(sc.currencies, c)
		}
		sc.mu.Unlock()
	default:
		s.sendAck(sc, streamAck{Status: "error", Error: "unknown command: " + cmd.Command})
		return
	}

	s.sendAck(sc, streamAck{Status: "ok", Command: cmd.Command})
}

func (s *StreamServer) sendAck(sc *streamConnection, ack streamAck) {
	data, err := json.Marshal(ack)
	if err != nil {
		return
	}
	select {
	case sc.send <- data:
	default:
		// send buffer full, drop the ack rather than block
	}
}

// broadcast delivers data to every connection subscribed to the
// currency. Connections with no explicit subscriptions get everything.
func (s *StreamServer) broadcast(currency string, data []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sc := range s.connections {
		sc.mu.RLock()
		interested := len(sc.currencies) == 0 || sc.currencies[currency]
		sc.mu.RUnlock()
		if !interested {
			continue
		}

		select {
		case sc.send <- data:
		default:
			// slow consumer, drop the event for this connection
		}
	}
}

func (s *StreamServer) closeConnection(sc *streamConnection) {
	sc.closeOnce.Do(func() {
		close(sc.done)
		sc.conn.Close()

		s.mu.Lock()
		delete(s.connections, sc.id)
		s.mu.Unlock()
	})
}

func (s *StreamServer) connectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}
