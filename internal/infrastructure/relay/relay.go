// Package relay carries topic deliveries between broker nodes.
package relay

import (
	"context"
	"sync"
)

// Handler receives every delivery published on any node, including the local one.
type Handler func(destination string, body []byte)

type Relay interface {
	Publish(ctx context.Context, destination string, body []byte) error
	Subscribe(h Handler) (unsubscribe func(), err error)
	Close() error
}

// Local delivers synchronously inside the process. It is the single-node relay.
type Local struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	next     int
}

func NewLocal() *Local {
	return &Local{handlers: make(map[int]Handler)}
}

func (l *Local) Publish(ctx context.Context, destination string, body []byte) error {
	l.mu.RLock()
	handlers := make([]Handler, 0, len(l.handlers))
	for _, h := range l.handlers {
		handlers = append(handlers, h)
	}
	l.mu.RUnlock()

	for _, h := range handlers {
		h(destination, body)
	}
	return nil
}

func (l *Local) Subscribe(h Handler) (func(), error) {
	l.mu.Lock()
	id := l.next
	l.next++
	l.handlers[id] = h
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.handlers, id)
		l.mu.Unlock()
	}, nil
}

func (l *Local) Close() error {
	l.mu.Lock()
	l.handlers = make(map[int]Handler)
	l.mu.Unlock()
	return nil
}
