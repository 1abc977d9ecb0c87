package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runServer(t *testing.T) *server.Server {
	t.Helper()
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	srv := natsserver.RunServer(&opts)
	t.Cleanup(srv.Shutdown)
	return srv
}

func newNode(t *testing.T, srv *server.Server, nodeID string) *NATS {
	t.Helper()
	n, err := NewNATS(NATSConfig{URL: srv.ClientURL(), Subject: "test.topics", NodeID: nodeID})
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })
	return n
}

type collector struct {
	mu    sync.Mutex
	items []string
}

func (c *collector) handle(dest string, body []byte) {
	c.mu.Lock()
	c.items = append(c.items, dest+"|"+string(body))
	c.mu.Unlock()
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.items...)
}

func TestNATSFansOutAcrossNodes(t *testing.T) {
	srv := runServer(t)
	a := newNode(t, srv, "node-a")
	b := newNode(t, srv, "node-b")
	ctx := context.Background()

	var onA, onB collector
	_, err := a.Subscribe(onA.handle)
	require.NoError(t, err)
	_, err = b.Subscribe(onB.handle)
	require.NoError(t, err)
	require.NoError(t, a.Ping(ctx))
	require.NoError(t, b.Ping(ctx))

	require.NoError(t, a.Publish(ctx, "/topic/inbox.alice", []byte(`{"content":"hi"}`)))

	want := []string{`/topic/inbox.alice|{"content":"hi"}`}
	require.Eventually(t, func() bool { return len(onB.snapshot()) == 1 && len(onA.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, want, onA.snapshot())
	assert.Equal(t, want, onB.snapshot())
}

func TestNATSDropsMalformedEnvelopes(t *testing.T) {
	srv := runServer(t)
	n := newNode(t, srv, "node-a")
	ctx := context.Background()

	var got collector
	_, err := n.Subscribe(got.handle)
	require.NoError(t, err)
	require.NoError(t, n.Ping(ctx))

	raw, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer raw.Close()
	require.NoError(t, raw.Publish("test.topics", []byte("not json")))
	require.NoError(t, raw.Flush())

	require.NoError(t, n.Publish(ctx, "/topic/onlineUsers", []byte(`["alice"]`)))
	require.Eventually(t, func() bool { return len(got.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{`/topic/onlineUsers|["alice"]`}, got.snapshot())
}

func TestNATSUnsubscribeStopsDelivery(t *testing.T) {
	srv := runServer(t)
	n := newNode(t, srv, "node-a")
	ctx := context.Background()

	var kept, dropped collector
	_, err := n.Subscribe(kept.handle)
	require.NoError(t, err)
	unsub, err := n.Subscribe(dropped.handle)
	require.NoError(t, err)
	unsub()
	require.NoError(t, n.Ping(ctx))

	require.NoError(t, n.Publish(ctx, "/topic/inbox.bob", []byte(`{}`)))
	require.Eventually(t, func() bool { return len(kept.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, dropped.snapshot())
}

func TestNATSCloseDrainsPendingDeliveries(t *testing.T) {
	srv := runServer(t)
	pub := newNode(t, srv, "node-a")
	sub := newNode(t, srv, "node-b")
	ctx := context.Background()

	var got collector
	_, err := sub.Subscribe(func(dest string, body []byte) {
		time.Sleep(time.Millisecond)
		got.handle(dest, body)
	})
	require.NoError(t, err)
	require.NoError(t, sub.Ping(ctx))

	const total = 50
	for i := 0; i < total; i++ {
		require.NoError(t, pub.Publish(ctx, "/topic/onlineUsers", []byte(`[]`)))
	}
	require.NoError(t, pub.Ping(ctx))
	require.Eventually(t, func() bool {
		msgs, _, _ := sub.subs[0].Pending()
		return msgs > 0 || len(got.snapshot()) == total
	}, 2*time.Second, time.Millisecond)

	require.NoError(t, sub.Close())
	require.Eventually(t, sub.nc.IsClosed, 5*time.Second, 10*time.Millisecond)
	assert.Len(t, got.snapshot(), total)

	assert.Error(t, sub.Publish(ctx, "/topic/onlineUsers", []byte(`[]`)))
}
