package net

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"TeamBoard/internal/logging"
)

// peer is one websocket client connected to the relay.
type peer struct {
	conn   *websocket.Conn
	send   chan Frame
	topics map[string]struct{}
}

// Relay fans whiteboard frames out between websocket clients. It keeps no
// board state: a frame published on a topic is forwarded to every other
// subscriber of that topic and then forgotten.
type Relay struct {
	logger   *zap.Logger
	metrics  *Metrics
	gatherer prometheus.Gatherer
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	peers  map[*peer]struct{}
	topics map[string]map[*peer]struct{}
}

// NewRelay creates a relay. gatherer backs /metrics and may be nil.
func NewRelay(logger *zap.Logger, metrics *Metrics, gatherer prometheus.Gatherer) *Relay {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Relay{
		logger:   logging.OrNop(logger),
		metrics:  metrics,
		gatherer: gatherer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		peers:  make(map[*peer]struct{}),
		topics: make(map[string]map[*peer]struct{}),
	}
}

// Handler returns the relay HTTP routes.
func (r *Relay) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, req)
			r.logger.Debug("handled",
				zap.String("method", req.Method),
				zap.String("url", req.URL.String()),
				zap.Duration("duration", m.Duration),
				zap.Int("status", m.Code))
		})
	})
	router.Methods(http.MethodGet).Path("/ws").HandlerFunc(r.serveWS)
	router.Methods(http.MethodGet).Path("/healthz").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if r.gatherer != nil {
		router.Methods(http.MethodGet).Path("/metrics").Handler(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
	}
	return router
}

// ListenAndServe serves the relay on addr until ctx is cancelled.
func (r *Relay) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: r.Handler(), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("relay listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	r.closeAll()
	return err
}

func (r *Relay) serveWS(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("failed to upgrade", zap.Error(err))
		return
	}
	p := &peer{conn: conn, send: make(chan Frame, 256), topics: make(map[string]struct{})}
	r.add(p)

	go r.writePump(p)
	r.readPump(p)
}

func (r *Relay) add(p *peer) {
	r.mu.Lock()
	r.peers[p] = struct{}{}
	r.mu.Unlock()
	r.metrics.RelayClients.Inc()
	r.logger.Info("client connected", zap.String("remote", p.conn.RemoteAddr().String()))
}

func (r *Relay) remove(p *peer) {
	r.mu.Lock()
	if _, ok := r.peers[p]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.peers, p)
	for topic := range p.topics {
		r.unsubscribeLocked(p, topic)
	}
	close(p.send)
	r.mu.Unlock()
	r.metrics.RelayClients.Dec()
	r.logger.Info("client disconnected", zap.String("remote", p.conn.RemoteAddr().String()))
}

func (r *Relay) unsubscribeLocked(p *peer, topic string) {
	delete(p.topics, topic)
	if set := r.topics[topic]; set != nil {
		delete(set, p)
		if len(set) == 0 {
			delete(r.topics, topic)
		}
	}
}

func (r *Relay) readPump(p *peer) {
	defer func() {
		r.remove(p)
		_ = p.conn.Close()
	}()

	p.conn.SetReadLimit(maxFrame)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var f Frame
		if err := p.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.logger.Warn("client read failed", zap.Error(err))
			}
			return
		}
		r.metrics.RelayFrames.WithLabelValues(f.Op).Inc()
		r.handle(p, f)
	}
}

func (r *Relay) handle(p *peer, f Frame) {
	switch f.Op {
	case OpSubscribe:
		r.mu.Lock()
		p.topics[f.Topic] = struct{}{}
		if r.topics[f.Topic] == nil {
			r.topics[f.Topic] = make(map[*peer]struct{})
		}
		r.topics[f.Topic][p] = struct{}{}
		r.mu.Unlock()
	case OpUnsubscribe:
		r.mu.Lock()
		r.unsubscribeLocked(p, f.Topic)
		r.mu.Unlock()
	case OpPublish:
		r.broadcast(Frame{Op: OpMessage, Topic: f.Topic, Payload: f.Payload}, p)
	default:
		r.logger.Debug("ignoring frame", zap.String("op", f.Op))
	}
}

// broadcast queues f for every subscriber of its topic except exclude. A
// subscriber whose queue is full misses the frame.
func (r *Relay) broadcast(f Frame, exclude *peer) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for p := range r.topics[f.Topic] {
		if p == exclude {
			continue
		}
		select {
		case p.send <- f:
		default:
			r.logger.Warn("dropping frame for slow client",
				zap.String("remote", p.conn.RemoteAddr().String()),
				zap.String("topic", f.Topic))
		}
	}
}

func (r *Relay) writePump(p *peer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = p.conn.Close()
	}()
	for {
		select {
		case f, ok := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteJSON(f); err != nil {
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (r *Relay) closeAll() {
	r.mu.RLock()
	peers := make([]*peer, 0, len(r.peers))
	for p := range r.peers {
		peers = append(peers, p)
	}
	r.mu.RUnlock()
	for _, p := range peers {
		_ = p.conn.Close()
	}
}

// Clients reports the number of connected clients.
func (r *Relay) Clients() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

func (r *Relay) subscribers(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topic])
}
