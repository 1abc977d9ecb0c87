package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"petcycle/pkg/logger"
)

type NATSConfig struct {
	URL           string
	Subject       string
	NodeID        string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

type envelope struct {
	Origin      string          `json:"origin"`
	Destination string          `json:"destination"`
	Body        json.RawMessage `json:"body"`
}

// NATS fans deliveries out to every node subscribed to the same subject, the publishing
// node included. Envelopes carry the origin node id for tracing.
type NATS struct {
	cfg NATSConfig
	nc  *nats.Conn

	mu   sync.Mutex
	subs []*nats.Subscription
}

func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats url missing")
	}
	if cfg.Subject == "" {
		cfg.Subject = "petcycle.topics"
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}

	opts := []nats.Option{
		nats.Name("petcycle-" + cfg.NodeID),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats relay disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats relay reconnected to %s", c.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &NATS{cfg: cfg, nc: nc}, nil
}

func (n *NATS) Publish(ctx context.Context, destination string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(envelope{Origin: n.cfg.NodeID, Destination: destination, Body: body})
	if err != nil {
		return err
	}
	return n.nc.Publish(n.cfg.Subject, data)
}

func (n *NATS) Subscribe(h Handler) (func(), error) {
	sub, err := n.nc.Subscribe(n.cfg.Subject, func(m *nats.Msg) {
		var env envelope
		if err := json.Unmarshal(m.Data, &env); err != nil {
			logger.Warn("nats relay: dropping malformed envelope: %v", err)
			return
		}
		if env.Origin != n.cfg.NodeID {
			logger.Debug("nats relay: %s from node %s", env.Destination, env.Origin)
		}
		h(env.Destination, append([]byte(nil), env.Body...))
	})
	if err != nil {
		return nil, err
	}
	_ = sub.SetPendingLimits(1_000_000, 64*1024*1024)

	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()

	return func() { _ = sub.Unsubscribe() }, nil
}

// Close drains subscriptions and the connection.
func (n *NATS) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, sub := range n.subs {
		_ = sub.Drain()
	}
	n.subs = nil
	if n.nc != nil {
		return n.nc.Drain()
	}
	return nil
}

// Ping round-trips to the server.
func (n *NATS) Ping(ctx context.Context) error {
	return n.nc.FlushWithContext(ctx)
}
