package frame

import (
	"time"
)

const (
	ChatTypeChat  = "CHAT"
	ChatTypeJoin  = "JOIN"
	ChatTypeLeave = "LEAVE"

	NoticeNewMessage = "NEW_MESSAGE"
)

// ChatMessage is the body of /app/chat.dm sends and /topic/inbox.{id} deliveries.
type ChatMessage struct {
	ID               string    `json:"id,omitempty"`
	RoomID           string    `json:"room_id,omitempty"`
	Type             string    `json:"type"`
	Sender           string    `json:"sender"`
	Receiver         string    `json:"receiver,omitempty"`
	Content          string    `json:"content,omitempty"`
	SenderNickname   string    `json:"sender_nickname,omitempty"`
	ReceiverNickname string    `json:"receiver_nickname,omitempty"`
	Timestamp        time.Time `json:"timestamp,omitempty"`
}

// Notice is the body of /topic/notice.{id} deliveries.
type Notice struct {
	Type           string `json:"type"`
	RoomID         string `json:"room_id,omitempty"`
	Sender         string `json:"sender,omitempty"`
	SenderNickname string `json:"sender_nickname,omitempty"`
	Preview        string `json:"preview,omitempty"`
}

type Connected struct {
	UserID string `json:"user_id"`
}
