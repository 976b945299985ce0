package net

import (
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"TeamBoard/internal/logging"
)

// NATSTransport carries whiteboard topics over NATS core subjects.
type NATSTransport struct {
	nc     *nats.Conn
	owned  bool
	logger *zap.Logger
}

// ConnectNATS dials url and returns a transport that owns the connection.
// Reconnects are handled by the client library; while it is reconnecting
// Connected reports false and broadcasts are dropped by the Channel.
func ConnectNATS(url, name string, logger *zap.Logger) (*NATSTransport, error) {
	logger = logging.OrNop(logger)
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	logger.Info("connected to NATS", zap.String("url", url))
	return &NATSTransport{nc: nc, owned: true, logger: logger}, nil
}

// NewNATSTransport wraps an existing connection. Close leaves it open.
func NewNATSTransport(nc *nats.Conn, logger *zap.Logger) *NATSTransport {
	return &NATSTransport{nc: nc, logger: logging.OrNop(logger)}
}

func (t *NATSTransport) Subscribe(topic string, h Handler) (Subscription, error) {
	subject := Subject(topic)
	sub, err := t.nc.Subscribe(subject, func(m *nats.Msg) {
		h(m.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub, nil
}

func (t *NATSTransport) Publish(topic string, payload []byte) error {
	if err := t.nc.Publish(Subject(topic), payload); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (t *NATSTransport) Connected() bool {
	return t.nc.IsConnected()
}

// Flush waits until the server has processed everything published so far.
func (t *NATSTransport) Flush() error {
	return t.nc.Flush()
}

func (t *NATSTransport) Close() error {
	if t.owned {
		t.nc.Close()
	}
	return nil
}

var subjectReplacer = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_", "\t", "_")

// Subject maps a topic onto a single-token NATS subject under "teamboard.".
func Subject(topic string) string {
	return "teamboard." + subjectReplacer.Replace(topic)
}
