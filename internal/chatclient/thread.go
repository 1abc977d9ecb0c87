package chatclient

import (
	"sync"

	"petcycle/internal/realtime/frame"
)

// Threads is the live, append-only message log per peer. Clear starts a new generation;
// offsets taken in an older generation are meaningless in the new one.
type Threads struct {
	mu         sync.RWMutex
	byPeer     map[string][]frame.ChatMessage
	seen       map[string]map[string]struct{}
	generation uint64

	watchMu  sync.Mutex
	watchers map[int]chan string
	nextID   int
}

func NewThreads() *Threads {
	return &Threads{
		byPeer:   make(map[string][]frame.ChatMessage),
		seen:     make(map[string]map[string]struct{}),
		watchers: make(map[int]chan string),
	}
}

// Append adds msg to peer's thread. A message whose id was already appended is ignored.
func (t *Threads) Append(peer string, msg frame.ChatMessage) bool {
	t.mu.Lock()
	if msg.ID != "" {
		ids := t.seen[peer]
		if ids == nil {
			ids = make(map[string]struct{})
			t.seen[peer] = ids
		}
		if _, dup := ids[msg.ID]; dup {
			t.mu.Unlock()
			return false
		}
		ids[msg.ID] = struct{}{}
	}
	t.byPeer[peer] = append(t.byPeer[peer], msg)
	t.mu.Unlock()

	t.notify(peer)
	return true
}

func (t *Threads) Len(peer string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byPeer[peer])
}

// Since copies peer's messages from offset on and returns them with the current length.
func (t *Threads) Since(peer string, offset int) ([]frame.ChatMessage, int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	live := t.byPeer[peer]
	if offset < 0 || offset > len(live) {
		offset = len(live)
	}
	out := make([]frame.ChatMessage, len(live)-offset)
	copy(out, live[offset:])
	return out, len(live)
}

// Mark returns peer's current length together with the generation it belongs to.
func (t *Threads) Mark(peer string) (int, uint64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byPeer[peer]), t.generation
}

// SinceMark is Since for an offset taken by Mark. When the log was cleared after the mark,
// the whole current log is returned. The new mark comes back with the messages.
func (t *Threads) SinceMark(peer string, offset int, generation uint64) ([]frame.ChatMessage, int, uint64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	live := t.byPeer[peer]
	if generation != t.generation || offset < 0 {
		offset = 0
	}
	if offset > len(live) {
		offset = len(live)
	}
	out := make([]frame.ChatMessage, len(live)-offset)
	copy(out, live[offset:])
	return out, len(live), t.generation
}

func (t *Threads) Generation() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.generation
}

func (t *Threads) Messages(peer string) []frame.ChatMessage {
	out, _ := t.Since(peer, 0)
	return out
}

func (t *Threads) Clear() {
	t.mu.Lock()
	t.byPeer = make(map[string][]frame.ChatMessage)
	t.seen = make(map[string]map[string]struct{})
	t.generation++
	t.mu.Unlock()
}

// Watch delivers the peer id of every append. Slow watchers miss updates rather than block.
func (t *Threads) Watch(buf int) (<-chan string, func()) {
	ch := make(chan string, buf)
	t.watchMu.Lock()
	id := t.nextID
	t.nextID++
	t.watchers[id] = ch
	t.watchMu.Unlock()

	return ch, func() {
		t.watchMu.Lock()
		if _, ok := t.watchers[id]; ok {
			delete(t.watchers, id)
			close(ch)
		}
		t.watchMu.Unlock()
	}
}

func (t *Threads) notify(peer string) {
	t.watchMu.Lock()
	defer t.watchMu.Unlock()
	for _, ch := range t.watchers {
		select {
		case ch <- peer:
		default:
		}
	}
}
