package net

import "errors"

// ErrClosed is returned by transports that have been shut down.
var ErrClosed = errors.New("transport closed")

// ErrQueueFull is returned when an outbound frame cannot be queued.
var ErrQueueFull = errors.New("send queue full")

// Handler receives a payload published on a topic by another client.
type Handler func(payload []byte)

// Subscription is the handle returned by Subscribe.
type Subscription interface {
	Unsubscribe() error
}

// Transport is the realtime pub/sub collaborator. Delivery is at most once and
// unordered beyond what the backend gives.
type Transport interface {
	Subscribe(topic string, h Handler) (Subscription, error)
	Publish(topic string, payload []byte) error
	Connected() bool
	Close() error
}

// Topic is the pub/sub topic for a whiteboard session.
func Topic(sessionID string) string {
	return "whiteboard-" + sessionID
}
