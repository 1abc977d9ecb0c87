package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"petcycle/internal/realtime/frame"
	"petcycle/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

// Client represents a WebSocket connection client
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	mu            sync.Mutex
	subscriptions map[string]string // subscription id -> destination
	joined        bool

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(userID string, conn *websocket.Conn, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Client{
		UserID:        userID,
		Conn:          conn,
		Send:          make(chan []byte, sendBuffer),
		subscriptions: make(map[string]string),
		done:          make(chan struct{}),
	}
}

// Close stops the write pump, which closes the socket.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) subscribe(id, destination string) {
	c.mu.Lock()
	c.subscriptions[id] = destination
	c.mu.Unlock()
}

func (c *Client) unsubscribe(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subscriptions[id]
	delete(c.subscriptions, id)
	return ok
}

func (c *Client) subscriptionsFor(destination string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []string
	for id, dest := range c.subscriptions {
		if dest == destination {
			ids = append(ids, id)
		}
	}
	return ids
}

// markJoined records the presence join and reports whether this call made it.
func (c *Client) markJoined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.joined {
		return false
	}
	c.joined = true
	return true
}

// markLeft reports whether the client had joined, clearing the flag.
func (c *Client) markLeft() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	joined := c.joined
	c.joined = false
	return joined
}

func (c *Client) deliver(destination string, body []byte) {
	for _, id := range c.subscriptionsFor(destination) {
		c.sendFrame(frame.NewMessage(destination, id, body))
	}
}

func (c *Client) sendFrame(f frame.Frame) {
	data, err := frame.Encode(f)
	if err != nil {
		logger.Error("encode frame for %s: %v", c.UserID, err)
		return
	}
	c.enqueue(data)
}

// enqueue never blocks; a client that cannot keep up is disconnected.
func (c *Client) enqueue(data []byte) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.Send <- data:
	default:
		logger.Warn("Client %s send buffer full, disconnecting", c.UserID)
		c.Close()
	}
}

// ReadPump reads frames until the connection fails, then unregisters the client.
func (c *Client) ReadPump(m *Manager) {
	defer m.Unregister(c)

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error for %s: %v", c.UserID, err)
			}
			return
		}
		m.HandleClientMessage(c, message)
	}
}

// WritePump drains Send to the socket and pings on idle.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("websocket write error for %s: %v", c.UserID, err)
				c.Close()
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
