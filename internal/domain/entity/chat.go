package entity

import (
	"sort"
	"time"
)

// ChatRoom is a one-to-one conversation. Its id is derived from the ordered participant pair.
type ChatRoom struct {
	ID            string               `json:"id" firestore:"id"`
	Participants  []string             `json:"participants" firestore:"participants"`
	LastMessage   string               `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageAt time.Time            `json:"last_message_at" firestore:"lastMessageAt"`
	ClearedAt     map[string]time.Time `json:"-" firestore:"clearedAt"` // per-user "delete for me"
	CreatedAt     time.Time            `json:"created_at" firestore:"createdAt"`
	UpdatedAt     time.Time            `json:"updated_at" firestore:"updatedAt"`
}

func RoomID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "_" + pair[1]
}

func NewChatRoom(a, b string, now time.Time) *ChatRoom {
	pair := []string{a, b}
	sort.Strings(pair)
	return &ChatRoom{
		ID:           pair[0] + "_" + pair[1],
		Participants: pair,
		ClearedAt:    map[string]time.Time{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (r *ChatRoom) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Peer returns the other participant, or "" if userID is not in the room.
func (r *ChatRoom) Peer(userID string) string {
	if !r.HasParticipant(userID) {
		return ""
	}
	for _, p := range r.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

func (r *ChatRoom) ClearedFor(userID string) time.Time {
	if r.ClearedAt == nil {
		return time.Time{}
	}
	return r.ClearedAt[userID]
}

// VisibleTo hides a room deleted by userID until a newer message arrives.
func (r *ChatRoom) VisibleTo(userID string) bool {
	cleared := r.ClearedFor(userID)
	return cleared.IsZero() || r.LastMessageAt.After(cleared)
}
