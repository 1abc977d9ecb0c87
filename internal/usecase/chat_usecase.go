package usecase

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"petcycle/internal/domain/entity"
	"petcycle/internal/domain/repository"
	"petcycle/internal/infrastructure/ratelimit"
	"petcycle/pkg/errors"
	"petcycle/pkg/logger"
)

const DefaultMaxContentLength = 500

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	publisher   LivePublisher
	rateLimiter RateLimiter
	maxLength   int
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	publisher LivePublisher,
	rateLimiter RateLimiter,
	maxLength int,
) *ChatUseCase {
	if maxLength <= 0 {
		maxLength = DefaultMaxContentLength
	}
	return &ChatUseCase{
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		publisher:   publisher,
		rateLimiter: rateLimiter,
		maxLength:   maxLength,
	}
}

type RoomSummary struct {
	RoomID        string    `json:"room_id"`
	PeerID        string    `json:"peer_id"`
	PeerNickname  string    `json:"peer_nickname"`
	LastMessage   string    `json:"last_message,omitempty"`
	LastMessageAt time.Time `json:"last_message_at"`
}

type SendMessageInput struct {
	RoomID  string
	Content string
}

func (uc *ChatUseCase) GetOrCreateRoom(ctx context.Context, userID, peerID string) (*RoomSummary, error) {
	room, err := uc.getOrCreateRoom(ctx, userID, peerID)
	if err != nil {
		return nil, err
	}
	return uc.summary(ctx, room, userID), nil
}

func (uc *ChatUseCase) getOrCreateRoom(ctx context.Context, userID, peerID string) (*entity.ChatRoom, error) {
	if peerID == "" {
		return nil, errors.BadRequest("Peer ID is required", nil)
	}
	if peerID == userID {
		return nil, errors.BadRequest("Cannot open a chat with yourself", nil)
	}

	room, err := uc.chatRepo.GetRoom(ctx, entity.RoomID(userID, peerID))
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return nil, err
	}

	if allowed, wait := uc.rateLimiter.Allow(userID, ratelimit.ActionCreateRoom); !allowed {
		logger.Info("GetOrCreateRoom rate limited: user %s must wait %v", userID, wait)
		return nil, errors.TooManyRequests("Too many new chats", wait)
	}

	room, _, err = uc.chatRepo.GetOrCreateRoom(ctx, userID, peerID)
	return room, err
}

// ListRooms returns the caller's visible rooms, most recent activity first.
func (uc *ChatUseCase) ListRooms(ctx context.Context, userID string) ([]RoomSummary, error) {
	rooms, err := uc.chatRepo.ListRoomsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		if !room.VisibleTo(userID) {
			continue
		}
		summaries = append(summaries, *uc.summary(ctx, room, userID))
	}
	return summaries, nil
}

// GetMessages returns a newest-first page of history the caller has not deleted.
func (uc *ChatUseCase) GetMessages(ctx context.Context, userID, roomID string, limit, offset int) ([]*entity.DirectMessage, int64, error) {
	room, err := uc.participantRoom(ctx, userID, roomID)
	if err != nil {
		return nil, 0, err
	}
	return uc.chatRepo.ListMessages(ctx, room.ID, room.ClearedFor(userID), limit, offset)
}

func (uc *ChatUseCase) SendMessage(ctx context.Context, userID string, input SendMessageInput) (*entity.DirectMessage, error) {
	room, err := uc.participantRoom(ctx, userID, input.RoomID)
	if err != nil {
		return nil, err
	}
	return uc.deliver(ctx, room, &entity.DirectMessage{
		Sender:   userID,
		Receiver: room.Peer(userID),
		Content:  input.Content,
	})
}

// SendDirect stores a message addressed by receiver and fans it out live.
func (uc *ChatUseCase) SendDirect(ctx context.Context, msg *entity.DirectMessage) (*entity.DirectMessage, error) {
	if msg.Receiver == "" {
		return nil, errors.BadRequest("Receiver is required", nil)
	}
	if _, err := uc.validateContent(msg.Content); err != nil {
		return nil, err
	}

	room, err := uc.getOrCreateRoom(ctx, msg.Sender, msg.Receiver)
	if err != nil {
		return nil, err
	}
	return uc.deliver(ctx, room, msg)
}

// DeleteRoom hides the room and its history from the caller only.
func (uc *ChatUseCase) DeleteRoom(ctx context.Context, userID, roomID string) error {
	if _, err := uc.participantRoom(ctx, userID, roomID); err != nil {
		return err
	}
	now := time.Now()
	_, err := uc.chatRepo.MutateRoom(ctx, roomID, func(room *entity.ChatRoom) error {
		if room.ClearedAt == nil {
			room.ClearedAt = map[string]time.Time{}
		}
		room.ClearedAt[userID] = now
		return nil
	})
	return err
}

func (uc *ChatUseCase) Nickname(ctx context.Context, userID string) string {
	return displayName(ctx, uc.userRepo, userID)
}

func (uc *ChatUseCase) deliver(ctx context.Context, room *entity.ChatRoom, msg *entity.DirectMessage) (*entity.DirectMessage, error) {
	content, err := uc.validateContent(msg.Content)
	if err != nil {
		return nil, err
	}

	if allowed, wait := uc.rateLimiter.Allow(msg.Sender, ratelimit.ActionSendMessage); !allowed {
		logger.Info("SendMessage rate limited: user %s must wait %v", msg.Sender, wait)
		return nil, errors.TooManyRequests("Too many messages", wait)
	}

	stored := &entity.DirectMessage{
		RoomID:           room.ID,
		Sender:           msg.Sender,
		Receiver:         msg.Receiver,
		Content:          content,
		SenderNickname:   msg.SenderNickname,
		ReceiverNickname: msg.ReceiverNickname,
		CreatedAt:        time.Now(),
	}
	if stored.SenderNickname == "" {
		stored.SenderNickname = displayName(ctx, uc.userRepo, stored.Sender)
	}
	if stored.ReceiverNickname == "" {
		stored.ReceiverNickname = displayName(ctx, uc.userRepo, stored.Receiver)
	}

	if err := uc.chatRepo.CreateMessage(ctx, stored); err != nil {
		return nil, err
	}

	_, err = uc.chatRepo.MutateRoom(ctx, room.ID, func(current *entity.ChatRoom) error {
		// an older send finishing late must not overwrite a newer preview
		if current.LastMessageAt.After(stored.CreatedAt) {
			return nil
		}
		current.LastMessage = content
		current.LastMessageAt = stored.CreatedAt
		return nil
	})
	if err != nil {
		logger.Warn("Failed to update room %s preview: %v", room.ID, err)
	}

	// The message is stored; a failed live push is recovered by history on the next room entry.
	if err := uc.publisher.PublishDirect(ctx, stored); err != nil {
		logger.Warn("Failed to publish message %s: %v", stored.ID, err)
	}

	return stored, nil
}

func (uc *ChatUseCase) validateContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", errors.BadRequest("Message content is required", nil)
	}
	if utf8.RuneCountInString(trimmed) > uc.maxLength {
		return "", errors.BadRequest("Message content is too long", nil)
	}
	return trimmed, nil
}

func (uc *ChatUseCase) participantRoom(ctx context.Context, userID, roomID string) (*entity.ChatRoom, error) {
	if roomID == "" {
		return nil, errors.BadRequest("Room ID is required", nil)
	}
	room, err := uc.chatRepo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant in this chat", nil)
	}
	return room, nil
}

func (uc *ChatUseCase) summary(ctx context.Context, room *entity.ChatRoom, userID string) *RoomSummary {
	peer := room.Peer(userID)
	return &RoomSummary{
		RoomID:        room.ID,
		PeerID:        peer,
		PeerNickname:  displayName(ctx, uc.userRepo, peer),
		LastMessage:   room.LastMessage,
		LastMessageAt: room.LastMessageAt,
	}
}

func displayName(ctx context.Context, repo repository.UserRepository, userID string) string {
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, errors.CodeNotFound) {
			logger.Warn("Failed to load profile %s: %v", userID, err)
		}
		return userID
	}
	return user.DisplayName()
}
