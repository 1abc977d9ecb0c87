package repository

import (
	"context"
	"time"

	"petcycle/internal/domain/entity"
)

type ChatRepository interface {
	GetRoom(ctx context.Context, roomID string) (*entity.ChatRoom, error)
	// GetOrCreateRoom returns the room for the pair and whether it was created by this call.
	GetOrCreateRoom(ctx context.Context, userA, userB string) (*entity.ChatRoom, bool, error)
	ListRoomsByUser(ctx context.Context, userID string) ([]*entity.ChatRoom, error)
	// MutateRoom applies fn to the stored room atomically. An error from fn aborts the write
	// and is returned unchanged.
	MutateRoom(ctx context.Context, roomID string, fn func(room *entity.ChatRoom) error) (*entity.ChatRoom, error)

	CreateMessage(ctx context.Context, message *entity.DirectMessage) error
	// ListMessages returns messages strictly after `after`, newest first.
	ListMessages(ctx context.Context, roomID string, after time.Time, limit, offset int) ([]*entity.DirectMessage, int64, error)
}
