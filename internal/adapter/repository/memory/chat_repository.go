// Package memory holds process-local repository implementations used by tests and
// STORAGE_DRIVER=memory deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"petcycle/internal/domain/entity"
	"petcycle/internal/domain/repository"
	"petcycle/pkg/errors"
)

type chatRepository struct {
	mu       sync.RWMutex
	rooms    map[string]*entity.ChatRoom
	messages map[string][]*entity.DirectMessage
}

func NewChatRepository() repository.ChatRepository {
	return &chatRepository{
		rooms:    make(map[string]*entity.ChatRoom),
		messages: make(map[string][]*entity.DirectMessage),
	}
}

func (r *chatRepository) GetRoom(ctx context.Context, roomID string) (*entity.ChatRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, errors.NotFound("Chat room", nil)
	}
	return cloneRoom(room), nil
}

func (r *chatRepository) GetOrCreateRoom(ctx context.Context, userA, userB string) (*entity.ChatRoom, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := entity.RoomID(userA, userB)
	if room, ok := r.rooms[id]; ok {
		return cloneRoom(room), false, nil
	}

	room := entity.NewChatRoom(userA, userB, time.Now())
	r.rooms[id] = room
	return cloneRoom(room), true, nil
}

func (r *chatRepository) ListRoomsByUser(ctx context.Context, userID string) ([]*entity.ChatRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rooms []*entity.ChatRoom
	for _, room := range r.rooms {
		if room.HasParticipant(userID) {
			rooms = append(rooms, cloneRoom(room))
		}
	}
	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].LastMessageAt.After(rooms[j].LastMessageAt)
	})
	return rooms, nil
}

func (r *chatRepository) MutateRoom(ctx context.Context, roomID string, fn func(room *entity.ChatRoom) error) (*entity.ChatRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.rooms[roomID]
	if !ok {
		return nil, errors.NotFound("Chat room", nil)
	}
	room := cloneRoom(current)
	if err := fn(room); err != nil {
		return nil, err
	}
	room.UpdatedAt = time.Now()
	r.rooms[roomID] = cloneRoom(room)
	return room, nil
}

func (r *chatRepository) CreateMessage(ctx context.Context, message *entity.DirectMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	stored := *message
	r.messages[message.RoomID] = append(r.messages[message.RoomID], &stored)
	return nil
}

func (r *chatRepository) ListMessages(ctx context.Context, roomID string, after time.Time, limit, offset int) ([]*entity.DirectMessage, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.messages[roomID]
	newestFirst := make([]*entity.DirectMessage, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		if !after.IsZero() && !stored[i].CreatedAt.After(after) {
			continue
		}
		m := *stored[i]
		newestFirst = append(newestFirst, &m)
	}

	total := int64(len(newestFirst))
	if offset >= len(newestFirst) {
		return []*entity.DirectMessage{}, total, nil
	}
	newestFirst = newestFirst[offset:]
	if limit > 0 && limit < len(newestFirst) {
		newestFirst = newestFirst[:limit]
	}
	return newestFirst, total, nil
}

func cloneRoom(room *entity.ChatRoom) *entity.ChatRoom {
	c := *room
	c.Participants = append([]string(nil), room.Participants...)
	c.ClearedAt = make(map[string]time.Time, len(room.ClearedAt))
	for k, v := range room.ClearedAt {
		c.ClearedAt[k] = v
	}
	return &c
}
