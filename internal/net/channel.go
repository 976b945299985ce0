package net

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"TeamBoard/internal/logging"
	"TeamBoard/internal/state"
)

// UpdateEvent names the snapshot message carried on a session topic.
const UpdateEvent = "whiteboard_update"

// Envelope is the wire form of a whole-board snapshot.
type Envelope struct {
	Event    string         `json:"event"`
	Session  string         `json:"session"`
	Origin   string         `json:"origin"`
	SentAt   time.Time      `json:"sent_at"`
	Elements state.Snapshot `json:"elements"`
}

// RemoteUpdateFunc observes snapshots broadcast by other clients.
type RemoteUpdateFunc func(state.Snapshot)

// Channel replicates whole-board snapshots for one client over a Transport.
// It holds at most one subscription at a time and no board state.
type Channel struct {
	transport Transport
	origin    string
	logger    *zap.Logger
	metrics   *Metrics

	mu        sync.Mutex
	session   string
	sub       Subscription
	observers map[int]RemoteUpdateFunc
	nextObs   int
}

// NewChannel creates an unjoined channel. origin identifies this client so
// its own broadcasts are not applied twice when the transport echoes them.
func NewChannel(t Transport, origin string, logger *zap.Logger, metrics *Metrics) *Channel {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Channel{
		transport: t,
		origin:    origin,
		logger:    logging.OrNop(logger).Named("channel"),
		metrics:   metrics,
		observers: make(map[int]RemoteUpdateFunc),
	}
}

// Join subscribes to the session topic, replacing any previous subscription.
func (c *Channel) Join(sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.unsubscribeLocked()

	sub, err := c.transport.Subscribe(Topic(sessionID), func(payload []byte) {
		c.receive(sessionID, payload)
	})
	if err != nil {
		return fmt.Errorf("join session %s: %w", sessionID, err)
	}
	c.session = sessionID
	c.sub = sub
	c.logger.Info("joined session", zap.String("session", sessionID), zap.String("topic", Topic(sessionID)))
	return nil
}

// Leave drops the current subscription. Leaving twice, or without having
// joined, does nothing.
func (c *Channel) Leave(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == nil {
		return
	}
	if sessionID != c.session {
		c.logger.Debug("leaving current session under a different id",
			zap.String("requested", sessionID), zap.String("current", c.session))
	}
	c.logger.Info("left session", zap.String("session", c.session))
	c.unsubscribeLocked()
}

func (c *Channel) unsubscribeLocked() {
	if c.sub == nil {
		return
	}
	if err := c.sub.Unsubscribe(); err != nil {
		c.logger.Warn("unsubscribe failed", zap.String("session", c.session), zap.Error(err))
	}
	c.sub = nil
	c.session = ""
}

// Session returns the joined session id, or "" when not joined.
func (c *Channel) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Connected reports whether broadcasts will currently be handed to the
// transport.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sub != nil && c.transport.Connected()
}

// Broadcast sends the whole snapshot to the other session members. It never
// fails: when the channel is not connected, or the transport refuses the
// payload, the snapshot is dropped.
func (c *Channel) Broadcast(s state.Snapshot) {
	c.mu.Lock()
	session, joined := c.session, c.sub != nil
	c.mu.Unlock()

	if !joined {
		c.drop("not_joined", len(s), nil)
		return
	}
	if !c.transport.Connected() {
		c.drop("disconnected", len(s), nil)
		return
	}

	payload, err := json.Marshal(Envelope{
		Event:    UpdateEvent,
		Session:  session,
		Origin:   c.origin,
		SentAt:   time.Now().UTC(),
		Elements: s.Clone(),
	})
	if err != nil {
		c.drop("encode", len(s), err)
		return
	}
	if err := c.transport.Publish(Topic(session), payload); err != nil {
		c.drop("publish", len(s), err)
		return
	}
	c.metrics.BroadcastsSent.Inc()
}

func (c *Channel) drop(reason string, elements int, err error) {
	c.metrics.BroadcastsDropped.WithLabelValues(reason).Inc()
	fields := []zap.Field{zap.String("reason", reason), zap.Int("elements", elements)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	c.logger.Debug("broadcast dropped", fields...)
}

// OnRemoteUpdate registers fn for remote snapshots. The returned func removes
// it.
func (c *Channel) OnRemoteUpdate(fn RemoteUpdateFunc) (cancel func()) {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

func (c *Channel) receive(sessionID string, payload []byte) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		c.logger.Warn("discarding undecodable snapshot", zap.String("session", sessionID), zap.Error(err))
		return
	}
	if env.Event != UpdateEvent || env.Origin == c.origin {
		return
	}

	c.mu.Lock()
	if c.session != sessionID {
		// Late delivery for a subscription we already replaced.
		c.mu.Unlock()
		return
	}
	observers := make([]RemoteUpdateFunc, 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()

	elements := env.Elements
	if elements == nil {
		elements = state.Snapshot{}
	}
	c.metrics.RemoteUpdates.Inc()
	c.logger.Debug("remote snapshot",
		zap.String("session", sessionID),
		zap.String("origin", env.Origin),
		zap.Int("elements", len(elements)))
	for _, fn := range observers {
		fn(elements.Clone())
	}
}
