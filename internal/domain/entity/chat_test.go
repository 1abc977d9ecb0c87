package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoomIDIsOrderIndependent(t *testing.T) {
	assert.Equal(t, "alice_bob", RoomID("bob", "alice"))
	assert.Equal(t, RoomID("alice", "bob"), RoomID("bob", "alice"))

	room := NewChatRoom("bob", "alice", time.Now())
	assert.Equal(t, "alice_bob", room.ID)
	assert.Equal(t, []string{"alice", "bob"}, room.Participants)
}

func TestChatRoomPeer(t *testing.T) {
	room := NewChatRoom("alice", "bob", time.Now())

	assert.Equal(t, "bob", room.Peer("alice"))
	assert.Equal(t, "alice", room.Peer("bob"))
	assert.Equal(t, "", room.Peer("carol"))
}

func TestChatRoomVisibility(t *testing.T) {
	now := time.Now()
	room := NewChatRoom("alice", "bob", now)
	room.LastMessageAt = now

	assert.True(t, room.VisibleTo("alice"))

	room.ClearedAt["alice"] = now.Add(time.Second)
	assert.False(t, room.VisibleTo("alice"))
	assert.True(t, room.VisibleTo("bob"))

	room.LastMessageAt = now.Add(2 * time.Second)
	assert.True(t, room.VisibleTo("alice"))
}

func TestProductCompleteIfConfirmed(t *testing.T) {
	now := time.Now()
	p := &Product{Status: ProductReserved}

	assert.False(t, p.CompleteIfConfirmed(now))

	p.SellerConfirmedAt = &now
	assert.False(t, p.CompleteIfConfirmed(now))

	p.BuyerConfirmedAt = &now
	assert.True(t, p.CompleteIfConfirmed(now))
	assert.Equal(t, ProductSold, p.Status)
	assert.NotNil(t, p.SoldAt)

	assert.False(t, p.CompleteIfConfirmed(now))
}
