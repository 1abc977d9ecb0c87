package presence

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"petcycle/pkg/logger"
)

const nodesKey = "presence:nodes"

// Redis partitions the online set by node. Each node owns a hash of user id to connection
// count whose TTL is refreshed by Heartbeat; a crashed node's users expire with its hash.
type Redis struct {
	client *redis.Client
	nodeID string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, nodeID string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{client: client, nodeID: nodeID, ttl: ttl}
}

func nodeKey(nodeID string) string {
	return "presence:node:" + nodeID
}

func (r *Redis) Join(ctx context.Context, userID string) error {
	key := nodeKey(r.nodeID)
	pipe := r.client.TxPipeline()
	pipe.HIncrBy(ctx, key, userID, 1)
	pipe.Expire(ctx, key, r.ttl)
	pipe.SAdd(ctx, nodesKey, r.nodeID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence join: %w", err)
	}
	return nil
}

func (r *Redis) Leave(ctx context.Context, userID string) error {
	key := nodeKey(r.nodeID)
	n, err := r.client.HIncrBy(ctx, key, userID, -1).Result()
	if err != nil {
		return fmt.Errorf("presence leave: %w", err)
	}
	if n <= 0 {
		if err := r.client.HDel(ctx, key, userID).Err(); err != nil {
			return fmt.Errorf("presence leave: %w", err)
		}
	}
	return nil
}

func (r *Redis) Online(ctx context.Context) ([]string, error) {
	nodes, err := r.client.SMembers(ctx, nodesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("presence nodes: %w", err)
	}

	seen := make(map[string]struct{})
	for _, node := range nodes {
		counts, err := r.client.HGetAll(ctx, nodeKey(node)).Result()
		if err != nil {
			return nil, fmt.Errorf("presence node %s: %w", node, err)
		}
		if len(counts) == 0 && node != r.nodeID {
			// expired partition
			r.client.SRem(ctx, nodesKey, node)
			continue
		}
		for id := range counts {
			seen[id] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Heartbeat refreshes this node's TTL until ctx is done, then removes the partition.
func (r *Redis) Heartbeat(ctx context.Context) {
	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()

	key := nodeKey(r.nodeID)
	for {
		select {
		case <-ticker.C:
			pipe := r.client.Pipeline()
			pipe.Expire(ctx, key, r.ttl)
			pipe.SAdd(ctx, nodesKey, r.nodeID)
			if _, err := pipe.Exec(ctx); err != nil {
				logger.Warn("presence heartbeat failed: %v", err)
			}
		case <-ctx.Done():
			cleanup, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			r.client.Del(cleanup, key)
			r.client.SRem(cleanup, nodesKey, r.nodeID)
			cancel()
			return
		}
	}
}
