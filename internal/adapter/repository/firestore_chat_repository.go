package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"petcycle/internal/domain/entity"
	"petcycle/internal/domain/repository"
	"petcycle/pkg/errors"
	"petcycle/pkg/logger"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) rooms() *firestore.CollectionRef {
	return r.client.Collection("chatRooms")
}

func (r *firestoreChatRepository) GetRoom(ctx context.Context, roomID string) (*entity.ChatRoom, error) {
	doc, err := r.rooms().Doc(roomID).Get(ctx)
	if err != nil {
		if IsNotFound(err) {
			return nil, errors.NotFound("Chat room", err)
		}
		return nil, errors.Internal("Failed to get chat room", err)
	}

	var room entity.ChatRoom
	if err := doc.DataTo(&room); err != nil {
		return nil, errors.Internal("Failed to parse chat room data", err)
	}
	return &room, nil
}

func (r *firestoreChatRepository) GetOrCreateRoom(ctx context.Context, userA, userB string) (*entity.ChatRoom, bool, error) {
	ref := r.rooms().Doc(entity.RoomID(userA, userB))

	var (
		room    *entity.ChatRoom
		created bool
	)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		created = false
		doc, err := tx.Get(ref)
		if err == nil {
			var existing entity.ChatRoom
			if err := doc.DataTo(&existing); err != nil {
				return err
			}
			room = &existing
			return nil
		}
		if !IsNotFound(err) {
			return err
		}

		room = entity.NewChatRoom(userA, userB, time.Now())
		created = true
		return tx.Create(ref, room)
	})
	if err != nil {
		return nil, false, errors.Internal("Failed to get or create chat room", err)
	}

	return room, created, nil
}

func (r *firestoreChatRepository) ListRoomsByUser(ctx context.Context, userID string) ([]*entity.ChatRoom, error) {
	iter := r.rooms().Where("participants", "array-contains", userID).Documents(ctx)
	defer iter.Stop()

	var rooms []*entity.ChatRoom
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while listing rooms for user %s: %v", userID, err)
			return nil, errors.Internal("Failed to list chat rooms", err)
		}

		var room entity.ChatRoom
		if err := doc.DataTo(&room); err != nil {
			return nil, errors.Internal("Failed to parse chat room data", err)
		}
		rooms = append(rooms, &room)
	}

	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].LastMessageAt.After(rooms[j].LastMessageAt)
	})
	return rooms, nil
}

func (r *firestoreChatRepository) MutateRoom(ctx context.Context, roomID string, fn func(room *entity.ChatRoom) error) (*entity.ChatRoom, error) {
	ref := r.rooms().Doc(roomID)

	var (
		result *entity.ChatRoom
		fnErr  error
	)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		fnErr = nil
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}

		var room entity.ChatRoom
		if err := doc.DataTo(&room); err != nil {
			return err
		}
		if fnErr = fn(&room); fnErr != nil {
			return fnErr
		}

		room.UpdatedAt = time.Now()
		result = &room
		return tx.Set(ref, &room)
	})
	if fnErr != nil {
		return nil, fnErr
	}
	if err != nil {
		if IsNotFound(err) {
			return nil, errors.NotFound("Chat room", err)
		}
		return nil, errors.Internal("Failed to update chat room", err)
	}

	return result, nil
}

func (r *firestoreChatRepository) CreateMessage(ctx context.Context, message *entity.DirectMessage) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	_, err := r.rooms().Doc(message.RoomID).Collection("messages").Doc(message.ID).Set(ctx, message)
	if err != nil {
		return errors.Internal("Failed to create message", err)
	}
	return nil
}

func (r *firestoreChatRepository) ListMessages(ctx context.Context, roomID string, after time.Time, limit, offset int) ([]*entity.DirectMessage, int64, error) {
	query := r.rooms().Doc(roomID).Collection("messages").Query
	if !after.IsZero() {
		query = query.Where("createdAt", ">", after)
	}
	query = query.OrderBy("createdAt", firestore.Desc)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while counting messages for room %s: %v", roomID, err)
		return nil, 0, errors.Internal("Failed to count messages", err)
	}
	total := int64(len(countDocs))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var messages []*entity.DirectMessage
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while iterating messages for room %s: %v", roomID, err)
			return nil, 0, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.DirectMessage
		if err := doc.DataTo(&message); err != nil {
			return nil, 0, errors.Internal("Failed to parse message data", err)
		}
		messages = append(messages, &message)
	}

	return messages, total, nil
}
