// Package presence keeps the set of identities with a live broker connection.
package presence

import (
	"context"
	"sort"
	"sync"
)

type Store interface {
	Join(ctx context.Context, userID string) error
	Leave(ctx context.Context, userID string) error
	Online(ctx context.Context) ([]string, error)
}

// Memory counts joins per identity. A user is online while the count is positive.
type Memory struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewMemory() *Memory {
	return &Memory{counts: make(map[string]int)}
}

func (m *Memory) Join(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[userID]++
	return nil
}

func (m *Memory) Leave(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts[userID] <= 1 {
		delete(m.counts, userID)
		return nil
	}
	m.counts[userID]--
	return nil
}

func (m *Memory) Online(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.counts))
	for id := range m.counts {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
