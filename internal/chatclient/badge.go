package chatclient

import "sync"

// Badge is the unread-activity flag for one session.
type Badge struct {
	mu      sync.Mutex
	pending bool
}

func (b *Badge) Set() {
	b.mu.Lock()
	b.pending = true
	b.mu.Unlock()
}

// Clear lowers the flag and reports whether it was raised.
func (b *Badge) Clear() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	was := b.pending
	b.pending = false
	return was
}

func (b *Badge) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}
