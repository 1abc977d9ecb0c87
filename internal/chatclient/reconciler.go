package chatclient

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"petcycle/internal/domain/entity"
	"petcycle/internal/realtime/frame"
)

// ErrSuperseded is returned by Enter when a later Enter replaced it before its fetches completed.
var ErrSuperseded = errors.New("room entry superseded")

// HistorySource is the REST side of a room: newest-first history and display names.
type HistorySource interface {
	History(ctx context.Context, roomID string, limit int) ([]entity.DirectMessage, error)
	Nickname(ctx context.Context, userID string) (string, error)
}

// Reconciler maintains the view of the active room: history seeded on entry, then the
// live suffix folded in by Sync.
type Reconciler struct {
	self    string
	threads *Threads
	source  HistorySource
	limit   int
	log     *zap.Logger

	mu           sync.Mutex
	generation   uint64
	peer         string
	peerNickname string
	view         []frame.ChatMessage
	ids          map[string]struct{}
	watermark    int
	liveGen      uint64
	seeded       bool
}

func NewReconciler(self string, threads *Threads, source HistorySource, historyLimit int, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		self:    self,
		threads: threads,
		source:  source,
		limit:   historyLimit,
		log:     log,
		ids:     make(map[string]struct{}),
	}
}

// Enter switches the view to peer. The watermark is the live length at the moment of entry,
// so live messages received before entry are left to the history fetch.
func (r *Reconciler) Enter(ctx context.Context, peer string) error {
	r.mu.Lock()
	r.generation++
	gen := r.generation
	r.peer = peer
	r.peerNickname = peer
	r.view = nil
	r.ids = make(map[string]struct{})
	r.watermark = 0
	r.seeded = false
	watermark, liveGen := r.threads.Mark(peer)
	r.mu.Unlock()

	var (
		history  []entity.DirectMessage
		nickname = peer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		history, err = r.source.History(gctx, entity.RoomID(r.self, peer), r.limit)
		return err
	})
	g.Go(func() error {
		name, err := r.source.Nickname(gctx, peer)
		if err != nil {
			r.log.Debug("nickname lookup failed", zap.String("peer", peer), zap.Error(err))
			return nil
		}
		if name != "" {
			nickname = name
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != gen {
		return ErrSuperseded
	}

	view := make([]frame.ChatMessage, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		msg := fromStored(history[i])
		if msg.ID != "" {
			if _, dup := r.ids[msg.ID]; dup {
				continue
			}
			r.ids[msg.ID] = struct{}{}
		}
		view = append(view, msg)
	}
	r.view = view
	r.peerNickname = nickname
	r.watermark = watermark
	r.liveGen = liveGen
	r.seeded = true
	return nil
}

// Sync appends the live messages that arrived since the last Sync and returns how many were added.
func (r *Reconciler) Sync() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.peer == "" || !r.seeded {
		return 0
	}

	// After a Clear the whole live log is new; ids already in the view are skipped below.
	suffix, length, liveGen := r.threads.SinceMark(r.peer, r.watermark, r.liveGen)

	added := 0
	for _, msg := range suffix {
		if msg.ID != "" {
			if _, dup := r.ids[msg.ID]; dup {
				continue
			}
			r.ids[msg.ID] = struct{}{}
		}
		r.view = append(r.view, msg)
		added++
	}
	r.watermark = length
	r.liveGen = liveGen
	return added
}

// Leave drops the active room.
func (r *Reconciler) Leave() {
	r.mu.Lock()
	r.generation++
	r.peer = ""
	r.peerNickname = ""
	r.view = nil
	r.ids = make(map[string]struct{})
	r.watermark = 0
	r.liveGen = 0
	r.seeded = false
	r.mu.Unlock()
}

func (r *Reconciler) Messages() []frame.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]frame.ChatMessage, len(r.view))
	copy(out, r.view)
	return out
}

func (r *Reconciler) Peer() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peer
}

func (r *Reconciler) PeerNickname() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peerNickname
}

func (r *Reconciler) Watermark() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.watermark
}

func fromStored(m entity.DirectMessage) frame.ChatMessage {
	return frame.ChatMessage{
		ID:               m.ID,
		RoomID:           m.RoomID,
		Type:             frame.ChatTypeChat,
		Sender:           m.Sender,
		Receiver:         m.Receiver,
		Content:          m.Content,
		SenderNickname:   m.SenderNickname,
		ReceiverNickname: m.ReceiverNickname,
		Timestamp:        m.CreatedAt,
	}
}
