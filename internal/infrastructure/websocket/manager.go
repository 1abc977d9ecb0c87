package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"petcycle/internal/domain/entity"
	"petcycle/internal/infrastructure/presence"
	"petcycle/internal/infrastructure/relay"
	"petcycle/internal/realtime/frame"
	"petcycle/pkg/logger"
)

// DirectMessenger persists a direct message and triggers its live fan-out.
type DirectMessenger interface {
	SendDirect(ctx context.Context, msg *entity.DirectMessage) (*entity.DirectMessage, error)
}

// Manager manages all active WebSocket connections. Each user holds at most one connection;
// deliveries travel through the relay so every node sees them.
type Manager struct {
	clients map[string]*Client
	mutex   sync.RWMutex

	relay     relay.Relay
	presence  presence.Store
	messenger DirectMessenger
}

func NewManager(r relay.Relay, p presence.Store) *Manager {
	return &Manager{
		clients:  make(map[string]*Client),
		relay:    r,
		presence: p,
	}
}

// SetMessenger wires the chat use case after construction.
func (m *Manager) SetMessenger(d DirectMessenger) {
	m.messenger = d
}

// Start subscribes to the relay and stops delivering when ctx is done.
func (m *Manager) Start(ctx context.Context) error {
	unsub, err := m.relay.Subscribe(m.deliverLocal)
	if err != nil {
		return fmt.Errorf("subscribe relay: %w", err)
	}

	go func() {
		<-ctx.Done()
		unsub()
		m.closeAll()
	}()
	return nil
}

// Register adds a client, replacing any previous connection of the same user, and
// greets it with a CONNECTED frame.
func (m *Manager) Register(client *Client) {
	m.mutex.Lock()
	previous := m.clients[client.UserID]
	m.clients[client.UserID] = client
	m.mutex.Unlock()

	if previous != nil {
		logger.Info("Client %s reconnected, closing previous session", client.UserID)
		previous.Close()
	}

	if body, err := json.Marshal(frame.Connected{UserID: client.UserID}); err == nil {
		client.sendFrame(frame.Frame{Command: frame.CommandConnected, Body: body})
	}
	logger.Info("Client registered: %s", client.UserID)
}

// Unregister removes the client, drops its presence and rebroadcasts the online set.
func (m *Manager) Unregister(client *Client) {
	m.mutex.Lock()
	if current, ok := m.clients[client.UserID]; ok && current == client {
		delete(m.clients, client.UserID)
	}
	m.mutex.Unlock()

	client.Close()

	if client.markLeft() {
		ctx := context.Background()
		if err := m.presence.Leave(ctx, client.UserID); err != nil {
			logger.Error("presence leave for %s: %v", client.UserID, err)
		}
		m.broadcastPresence(ctx)
	}
	logger.Info("Client unregistered: %s", client.UserID)
}

func (m *Manager) client(userID string) *Client {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.clients[userID]
}

func (m *Manager) snapshotClients() []*Client {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	return out
}

func (m *Manager) closeAll() {
	for _, c := range m.snapshotClients() {
		c.Close()
	}
}

// Connected reports whether userID has a live connection on this node.
func (m *Manager) Connected(userID string) bool {
	return m.client(userID) != nil
}

// Online returns the cluster-wide online set.
func (m *Manager) Online(ctx context.Context) ([]string, error) {
	return m.presence.Online(ctx)
}

// Publish marshals payload and sends it to destination on every node.
func (m *Manager) Publish(ctx context.Context, destination string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", destination, err)
	}
	return m.relay.Publish(ctx, destination, body)
}

// PublishDirect fans a stored message out to both inboxes and the receiver's notice feed.
func (m *Manager) PublishDirect(ctx context.Context, msg *entity.DirectMessage) error {
	chat := frame.ChatMessage{
		ID:               msg.ID,
		RoomID:           msg.RoomID,
		Type:             frame.ChatTypeChat,
		Sender:           msg.Sender,
		Receiver:         msg.Receiver,
		Content:          msg.Content,
		SenderNickname:   msg.SenderNickname,
		ReceiverNickname: msg.ReceiverNickname,
		Timestamp:        msg.CreatedAt,
	}
	if err := m.Publish(ctx, frame.InboxTopic(msg.Receiver), chat); err != nil {
		return err
	}
	if err := m.Publish(ctx, frame.InboxTopic(msg.Sender), chat); err != nil {
		return err
	}
	return m.Publish(ctx, frame.NoticeTopic(msg.Receiver), frame.Notice{
		Type:           frame.NoticeNewMessage,
		RoomID:         msg.RoomID,
		Sender:         msg.Sender,
		SenderNickname: msg.SenderNickname,
		Preview:        preview(msg.Content),
	})
}

func (m *Manager) broadcastPresence(ctx context.Context) {
	online, err := m.presence.Online(ctx)
	if err != nil {
		logger.Error("presence snapshot: %v", err)
		return
	}
	if err := m.Publish(ctx, frame.TopicOnlineUsers, online); err != nil {
		logger.Error("presence broadcast: %v", err)
	}
}

// deliverLocal hands a relayed delivery to the subscribed local connections.
func (m *Manager) deliverLocal(destination string, body []byte) {
	kind, addressee := frame.ParseTopic(destination)
	switch kind {
	case frame.TopicPresence:
		for _, c := range m.snapshotClients() {
			c.deliver(destination, body)
		}
	case frame.TopicInbox, frame.TopicNotice:
		if c := m.client(addressee); c != nil {
			c.deliver(destination, body)
		}
	default:
		logger.Warn("relay delivery to unknown destination %q dropped", destination)
	}
}

func preview(content string) string {
	const limit = 60
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "…"
}
