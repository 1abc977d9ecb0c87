package entity

import "time"

type DirectMessage struct {
	ID               string    `json:"id" firestore:"id"`
	RoomID           string    `json:"room_id" firestore:"roomId"`
	Sender           string    `json:"sender" firestore:"sender"`
	Receiver         string    `json:"receiver" firestore:"receiver"`
	Content          string    `json:"content" firestore:"content"`
	SenderNickname   string    `json:"sender_nickname,omitempty" firestore:"senderNickname,omitempty"`
	ReceiverNickname string    `json:"receiver_nickname,omitempty" firestore:"receiverNickname,omitempty"`
	CreatedAt        time.Time `json:"created_at" firestore:"createdAt"`
}
