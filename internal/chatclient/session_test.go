package chatclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petcycle/internal/domain/entity"
	"petcycle/internal/realtime/frame"
)

// fakeBroker accepts one connection at a time, greets it and records inbound frames.
type fakeBroker struct {
	srv      *httptest.Server
	received chan frame.Frame
	conns    chan *websocket.Conn
	greetAs  string
	auth     chan string
}

func newFakeBroker(t *testing.T, greetAs string) *fakeBroker {
	t.Helper()
	b := &fakeBroker{
		received: make(chan frame.Frame, 64),
		conns:    make(chan *websocket.Conn, 4),
		greetAs:  greetAs,
		auth:     make(chan string, 4),
	}
	upgrader := websocket.Upgrader{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.auth <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		body, _ := json.Marshal(frame.Connected{UserID: b.greetAs})
		_ = conn.WriteJSON(frame.Frame{Command: frame.CommandConnected, Body: body})
		b.conns <- conn
		for {
			var f frame.Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			b.received <- f
		}
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBroker) url() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http")
}

func (b *fakeBroker) next(t *testing.T) frame.Frame {
	t.Helper()
	select {
	case f := <-b.received:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return frame.Frame{}
	}
}

func (b *fakeBroker) conn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-b.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no connection")
		return nil
	}
}

func push(t *testing.T, conn *websocket.Conn, destination, subscription string, body []byte) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(frame.NewMessage(destination, subscription, body)))
}

func connectedSession(t *testing.T, b *fakeBroker) (*Session, *websocket.Conn) {
	t.Helper()
	s := NewSession(SessionConfig{URL: b.url(), Identity: "me", Token: "tok", MaxContentLength: 10})
	require.NoError(t, s.Connect(context.Background()))
	t.Cleanup(s.Disconnect)
	conn := b.conn(t)

	for i := 0; i < 4; i++ {
		b.next(t)
	}
	return s, conn
}

func TestConnectSubscribesAndAnnounces(t *testing.T) {
	b := newFakeBroker(t, "me")
	s := NewSession(SessionConfig{URL: b.url(), Identity: "me", Token: "tok"})
	updates, stop := s.Watch(4)
	defer stop()

	require.NoError(t, s.Connect(context.Background()))
	defer s.Disconnect()
	assert.Equal(t, "Bearer tok", <-b.auth)
	assert.True(t, s.Connected())
	assert.True(t, <-updates)

	var got []string
	for i := 0; i < 4; i++ {
		f := b.next(t)
		got = append(got, string(f.Command)+" "+f.Destination)
	}
	assert.Equal(t, []string{
		"SUBSCRIBE " + frame.TopicOnlineUsers,
		"SUBSCRIBE " + frame.InboxTopic("me"),
		"SUBSCRIBE " + frame.NoticeTopic("me"),
		"SEND " + frame.AppAddUser,
	}, got)

	require.NoError(t, s.Connect(context.Background()))
	select {
	case <-b.auth:
		t.Fatal("second Connect dialed again")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConnectFailureLeavesDisconnected(t *testing.T) {
	s := NewSession(SessionConfig{URL: "ws://127.0.0.1:1/ws", Identity: "me"})
	assert.Error(t, s.Connect(context.Background()))
	assert.Equal(t, StateDisconnected, s.State())

	b := newFakeBroker(t, "someone-else")
	s = NewSession(SessionConfig{URL: b.url(), Identity: "me"})
	assert.Error(t, s.Connect(context.Background()))
	assert.False(t, s.Connected())
}

func TestPublishGuards(t *testing.T) {
	b := newFakeBroker(t, "me")
	offline := NewSession(SessionConfig{URL: b.url(), Identity: "me"})
	assert.NoError(t, offline.SendDirectMessage("alice", "hi", DisplayHints{}))

	s, _ := connectedSession(t, b)

	assert.NoError(t, s.SendDirectMessage("me", "to myself", DisplayHints{}))
	assert.NoError(t, s.SendDirectMessage("", "to nobody", DisplayHints{}))
	assert.NoError(t, s.SendDirectMessage("alice", "   ", DisplayHints{}))
	assert.ErrorIs(t, s.SendDirectMessage("alice", "eleven runes", DisplayHints{}), ErrContentTooLong)
	assert.ErrorIs(t, s.Publish("/app/other", frame.ChatMessage{}), ErrUnknownDestination)

	require.NoError(t, s.SendDirectMessage("alice", " hi alice ", DisplayHints{SenderNickname: "Me"}))
	f := b.next(t)
	assert.Equal(t, frame.AppDirectMessage, f.Destination)

	var msg frame.ChatMessage
	require.NoError(t, json.Unmarshal(f.Body, &msg))
	assert.Equal(t, "me", msg.Sender)
	assert.Equal(t, "alice", msg.Receiver)
	assert.Equal(t, "hi alice", msg.Content)
	assert.Equal(t, "Me", msg.SenderNickname)
	assert.Equal(t, frame.ChatTypeChat, msg.Type)

	select {
	case extra := <-b.received:
		t.Fatalf("guarded publish reached the broker: %+v", extra)
	default:
	}
}

func TestInboundDeliveriesUpdateState(t *testing.T) {
	b := newFakeBroker(t, "me")
	s, conn := connectedSession(t, b)

	push(t, conn, frame.TopicOnlineUsers, subPresence, []byte(`["me","alice"]`))
	push(t, conn, frame.InboxTopic("me"), subInbox, mustJSON(t, chat("1", "alice", "me", "hi")))
	push(t, conn, frame.NoticeTopic("me"), subNotice, []byte(`{"type":"NEW_MESSAGE","sender":"alice"}`))

	require.Eventually(t, func() bool {
		return s.Presence().IsOnline("alice") && s.Threads().Len("alice") == 1 && s.Badge().Pending()
	}, 2*time.Second, 5*time.Millisecond)

	s.OpenInbox()
	assert.False(t, s.Badge().Pending())
}

func TestDisconnectClearsStateAndDropsLateFrames(t *testing.T) {
	b := newFakeBroker(t, "me")
	s, conn := connectedSession(t, b)
	updates, stop := s.Watch(4)
	defer stop()

	push(t, conn, frame.TopicOnlineUsers, subPresence, []byte(`["me","alice"]`))
	push(t, conn, frame.InboxTopic("me"), subInbox, mustJSON(t, chat("1", "alice", "me", "hi")))
	push(t, conn, frame.NoticeTopic("me"), subNotice, []byte(`{"type":"NEW_MESSAGE"}`))
	require.Eventually(t, func() bool { return s.Badge().Pending() }, 2*time.Second, 5*time.Millisecond)

	s.mu.RLock()
	oldEpoch := s.epoch
	s.mu.RUnlock()

	s.Disconnect()
	s.Disconnect()
	assert.False(t, <-updates)

	var unsubscribed []string
	for i := 0; i < 3; i++ {
		f := b.next(t)
		require.Equal(t, frame.CommandUnsubscribe, f.Command)
		unsubscribed = append(unsubscribed, f.Subscription)
	}
	assert.ElementsMatch(t, []string{subPresence, subInbox, subNotice}, unsubscribed)

	assert.Empty(t, s.Presence().Snapshot())
	assert.Equal(t, 0, s.Threads().Len("alice"))
	assert.False(t, s.Badge().Pending())

	s.dispatch(oldEpoch, frame.InboxTopic("me"), mustJSON(t, chat("2", "alice", "me", "late")))
	assert.Equal(t, 0, s.Threads().Len("alice"))
	assert.Equal(t, StateDisconnected, s.State())
}

func TestServerCloseFlipsToDisconnected(t *testing.T) {
	b := newFakeBroker(t, "me")
	s, conn := connectedSession(t, b)
	updates, stop := s.Watch(4)
	defer stop()

	require.NoError(t, conn.Close())

	select {
	case connected := <-updates:
		assert.False(t, connected)
	case <-time.After(2 * time.Second):
		t.Fatal("no disconnect notification")
	}
	assert.Equal(t, StateDisconnected, s.State())
	assert.NoError(t, s.SendDirectMessage("alice", "hello", DisplayHints{}))
}

func TestDisconnectDiscardsRoomEntryInFlight(t *testing.T) {
	b := newFakeBroker(t, "me")
	s, _ := connectedSession(t, b)

	src := &fakeHistory{
		rooms: map[string][]entity.DirectMessage{entity.RoomID("me", "alice"): {stored("a1", "alice", "me")}},
		gate:  make(chan struct{}),
	}
	room := s.Room(src, 50)

	done := make(chan error, 1)
	go func() { done <- room.Enter(context.Background(), "alice") }()
	require.Eventually(t, func() bool { return room.Peer() == "alice" }, 2*time.Second, 5*time.Millisecond)

	s.Disconnect()
	close(src.gate)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Empty(t, room.Peer())
	assert.Empty(t, room.Messages())
	assert.Zero(t, room.Sync())
}

func TestDisconnectLeavesActiveRoom(t *testing.T) {
	b := newFakeBroker(t, "me")
	s, conn := connectedSession(t, b)

	src := &fakeHistory{rooms: map[string][]entity.DirectMessage{
		entity.RoomID("me", "alice"): {stored("a1", "alice", "me")},
	}}
	room := s.Room(src, 50)
	require.NoError(t, room.Enter(context.Background(), "alice"))

	push(t, conn, frame.InboxTopic("me"), subInbox, mustJSON(t, chat("a2", "alice", "me", "a2")))
	require.Eventually(t, func() bool { return room.Sync() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"a1", "a2"}, contents(room.Messages()))

	s.Disconnect()
	assert.Empty(t, room.Messages())
	assert.Empty(t, room.Peer())
}
