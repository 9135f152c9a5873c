package rpc

import (
	"encoding/json"
	"log"
)

// EventPublisher publishes applied events to stream subscribers. The
// executor publishes through this interface so it never depends on the
// WebSocket implementation.
type EventPublisher interface {
	// PublishApplied publishes one committed event to subscribers of
	// its currency and to firehose subscribers.
	PublishApplied(ev *AppliedEvent)

	// SubscriberCount returns the number of active connections.
	SubscriberCount() int
}

// Publisher implements EventPublisher over a StreamServer.
type Publisher struct {
	server *StreamServer
}

// NewPublisher creates a new Publisher for the given stream server.
func NewPublisher(server *StreamServer) *Publisher {
	return &Publisher{server: server}
}

// PublishApplied broadcasts a committed event.
func (p *Publisher) PublishApplied(ev *AppliedEvent) {
	if ev == nil || p.server == nil {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Failed to marshal applied event: %v", err)
		return
	}

	p.server.broadcast(ev.Currency, data)
}

// SubscriberCount returns the number of active connections.
func (p *Publisher) SubscriberCount() int {
	if p.server == nil {
		return 0
	}
	return p.server.connectionCount()
}

// NoOpPublisher is a publisher that does nothing, for tests or when
// streaming is disabled.
type NoOpPublisher struct{}

func NewNoOpPublisher() *NoOpPublisher { return &NoOpPublisher{} }

func (p *NoOpPublisher) PublishApplied(ev *AppliedEvent) {}
func (p *NoOpPublisher) SubscriberCount() int            { return 0 }

var _ EventPublisher = (*Publisher)(nil)
var _ EventPublisher = (*NoOpPublisher)(nil)
