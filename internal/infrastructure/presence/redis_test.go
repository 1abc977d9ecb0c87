package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisNode(t *testing.T, mr *miniredis.Miniredis, nodeID string, ttl time.Duration) *Redis {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, nodeID, ttl)
}

func TestRedisCountsConnectionsPerNode(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	node := newRedisNode(t, mr, "a", time.Minute)

	require.NoError(t, node.Join(ctx, "bob"))
	require.NoError(t, node.Join(ctx, "bob"))
	require.NoError(t, node.Join(ctx, "alice"))
	assert.Equal(t, "2", mr.HGet(nodeKey("a"), "bob"))
	assert.Equal(t, time.Minute, mr.TTL(nodeKey("a")))

	require.NoError(t, node.Leave(ctx, "bob"))
	online, err := node.Online(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, online)

	require.NoError(t, node.Leave(ctx, "bob"))
	assert.Empty(t, mr.HGet(nodeKey("a"), "bob"))
	online, err = node.Online(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, online)
}

func TestRedisOnlineIsUnionOfNodes(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	a := newRedisNode(t, mr, "a", time.Minute)
	b := newRedisNode(t, mr, "b", time.Minute)

	require.NoError(t, a.Join(ctx, "alice"))
	require.NoError(t, b.Join(ctx, "bob"))
	require.NoError(t, b.Join(ctx, "alice"))

	for _, node := range []*Redis{a, b} {
		online, err := node.Online(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, online)
	}

	require.NoError(t, b.Leave(ctx, "alice"))
	online, err := b.Online(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, online, "alice is still connected to node a")
}

func TestRedisOnlinePrunesExpiredNodes(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	a := newRedisNode(t, mr, "a", time.Minute)
	crashed := newRedisNode(t, mr, "b", 10*time.Second)

	require.NoError(t, a.Join(ctx, "alice"))
	require.NoError(t, crashed.Join(ctx, "bob"))

	mr.FastForward(11 * time.Second)

	online, err := a.Online(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, online)

	members, err := mr.Members(nodesKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, members)
}

func TestRedisHeartbeatRefreshesAndCleansUp(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	ttl := 300 * time.Millisecond
	node := newRedisNode(t, mr, "a", ttl)
	require.NoError(t, node.Join(ctx, "alice"))

	mr.SetTTL(nodeKey("a"), 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		node.Heartbeat(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return mr.TTL(nodeKey("a")) == ttl }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("heartbeat did not stop")
	}
	assert.False(t, mr.Exists(nodeKey("a")))
	ok, err := mr.SIsMember(nodesKey, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisDefaultTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	node := newRedisNode(t, mr, "a", 0)
	require.NoError(t, node.Join(context.Background(), "alice"))
	assert.Equal(t, 30*time.Second, mr.TTL(nodeKey("a")))
}
