package net

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"TeamBoard/internal/logging"
)

// Frame ops exchanged with the relay.
const (
	OpSubscribe   = "sub"
	OpUnsubscribe = "unsub"
	OpPublish     = "pub"
	OpMessage     = "msg"
)

// Frame is one JSON websocket message between a client and the relay.
type Frame struct {
	Op      string `json:"op"`
	Topic   string `json:"topic"`
	Payload []byte `json:"payload,omitempty"`
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxFrame   = 4 << 20
)

// WSTransport is a websocket client of the relay server. It does not
// reconnect; once the link drops Connected stays false.
type WSTransport struct {
	conn   *websocket.Conn
	logger *zap.Logger

	send chan Frame
	done chan struct{}
	wg   sync.WaitGroup

	mu       sync.RWMutex
	handlers map[string]map[*wsSub]Handler

	connected atomic.Bool
	closeOnce sync.Once
}

type wsSub struct {
	t     *WSTransport
	topic string
	once  sync.Once
}

// DialWS connects to the relay websocket endpoint at url.
func DialWS(ctx context.Context, url string, queue int, logger *zap.Logger) (*WSTransport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial relay %s: %w", url, err)
	}
	if queue <= 0 {
		queue = 64
	}
	t := &WSTransport{
		conn:     conn,
		logger:   logging.OrNop(logger),
		send:     make(chan Frame, queue),
		done:     make(chan struct{}),
		handlers: make(map[string]map[*wsSub]Handler),
	}
	t.connected.Store(true)

	t.wg.Add(2)
	go t.readLoop()
	go t.writeLoop()

	t.logger.Info("connected to relay", zap.String("url", url))
	return t, nil
}

func (t *WSTransport) readLoop() {
	defer t.wg.Done()
	defer t.connected.Store(false)

	t.conn.SetReadLimit(maxFrame)
	_ = t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		return t.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var f Frame
		if err := t.conn.ReadJSON(&f); err != nil {
			select {
			case <-t.done:
			default:
				t.logger.Warn("relay connection lost", zap.Error(err))
			}
			return
		}
		if f.Op != OpMessage {
			continue
		}
		t.mu.RLock()
		hs := make([]Handler, 0, len(t.handlers[f.Topic]))
		for _, h := range t.handlers[f.Topic] {
			hs = append(hs, h)
		}
		t.mu.RUnlock()
		for _, h := range hs {
			h(f.Payload)
		}
	}
}

func (t *WSTransport) writeLoop() {
	defer t.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case f := <-t.send:
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteJSON(f); err != nil {
				t.logger.Warn("failed to write frame", zap.String("op", f.Op), zap.Error(err))
				t.connected.Store(false)
				return
			}
		case <-ticker.C:
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.connected.Store(false)
				return
			}
		case <-t.done:
			t.drain()
			_ = t.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// drain writes frames still queued at Close.
func (t *WSTransport) drain() {
	for {
		select {
		case f := <-t.send:
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteJSON(f); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (t *WSTransport) enqueue(f Frame) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}
	select {
	case t.send <- f:
		return nil
	default:
		return ErrQueueFull
	}
}

func (t *WSTransport) Subscribe(topic string, h Handler) (Subscription, error) {
	s := &wsSub{t: t, topic: topic}
	t.mu.Lock()
	first := len(t.handlers[topic]) == 0
	if t.handlers[topic] == nil {
		t.handlers[topic] = make(map[*wsSub]Handler)
	}
	t.handlers[topic][s] = h
	t.mu.Unlock()

	if first {
		if err := t.enqueue(Frame{Op: OpSubscribe, Topic: topic}); err != nil {
			t.remove(s)
			return nil, fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return s, nil
}

// remove drops s and reports whether it was the topic's last handler.
func (t *WSTransport) remove(s *wsSub) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	set := t.handlers[s.topic]
	if _, ok := set[s]; !ok {
		return false
	}
	delete(set, s)
	if len(set) == 0 {
		delete(t.handlers, s.topic)
		return true
	}
	return false
}

func (s *wsSub) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		if s.t.remove(s) {
			err = s.t.enqueue(Frame{Op: OpUnsubscribe, Topic: s.topic})
		}
	})
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

func (t *WSTransport) Publish(topic string, payload []byte) error {
	if !t.connected.Load() {
		return ErrClosed
	}
	return t.enqueue(Frame{Op: OpPublish, Topic: topic, Payload: payload})
}

func (t *WSTransport) Connected() bool {
	return t.connected.Load()
}

func (t *WSTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		t.connected.Store(false)
	})
	// writeLoop sends the close frame; the read side unblocks once the peer
	// answers it or the connection is torn down below.
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(writeWait):
	}
	err := t.conn.Close()
	<-done
	return err
}
