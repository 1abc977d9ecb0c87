// Package chatclient is the client side of the live chat: one Session per identity owning
// its presence set, per-peer threads and unread badge.
package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"petcycle/internal/realtime/frame"
)

var (
	ErrContentTooLong     = errors.New("message content is too long")
	ErrUnknownDestination = errors.New("unknown destination")
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

const (
	subPresence = "presence"
	subInbox    = "inbox"
	subNotice   = "notice"

	defaultMaxContentLength = 500
	handshakeTimeout        = 10 * time.Second
)

type SessionConfig struct {
	// URL of the websocket endpoint, e.g. ws://localhost:8080/ws
	URL      string
	Identity string
	Token    string
	Dialer   *websocket.Dialer
	// MaxContentLength bounds outgoing messages in runes. Defaults to 500.
	MaxContentLength int
	Logger           *zap.Logger
}

// DisplayHints are optional nicknames sent along with a direct message.
type DisplayHints struct {
	SenderNickname   string
	ReceiverNickname string
}

type Session struct {
	cfg    SessionConfig
	log    *zap.Logger
	dialer *websocket.Dialer

	presence *Presence
	threads  *Threads
	badge    *Badge
	mux      *Multiplexer

	mu    sync.RWMutex
	state State
	conn  *websocket.Conn
	epoch uint64

	writeMu sync.Mutex

	watchMu  sync.Mutex
	watchers map[int]chan bool
	nextID   int

	roomsMu sync.Mutex
	rooms   []*Reconciler
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = defaultMaxContentLength
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("identity", cfg.Identity))

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	}

	s := &Session{
		cfg:      cfg,
		log:      log,
		dialer:   dialer,
		presence: NewPresence(),
		threads:  NewThreads(),
		badge:    &Badge{},
		watchers: make(map[int]chan bool),
	}
	s.mux = NewMultiplexer(cfg.Identity, s.presence, s.threads, s.badge, log)
	return s
}

// Room returns a reconciler over this session's threads. Disconnect leaves it, so a history
// fetch still running at teardown is discarded.
func (s *Session) Room(source HistorySource, historyLimit int) *Reconciler {
	r := NewReconciler(s.cfg.Identity, s.threads, source, historyLimit, s.log)
	s.roomsMu.Lock()
	s.rooms = append(s.rooms, r)
	s.roomsMu.Unlock()
	return r
}

func (s *Session) Identity() string    { return s.cfg.Identity }
func (s *Session) Presence() *Presence { return s.presence }
func (s *Session) Threads() *Threads   { return s.threads }
func (s *Session) Badge() *Badge       { return s.badge }

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Connected() bool {
	return s.State() == StateConnected
}

// Connect opens the session. It is a no-op while connected or connecting. A failed attempt
// leaves the session disconnected and is not retried.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	s.state = StateConnecting
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	conn, err := s.handshake(ctx)
	if err != nil {
		s.mu.Lock()
		if s.epoch == epoch {
			s.state = StateDisconnected
		}
		s.mu.Unlock()
		s.log.Warn("connect failed", zap.Error(err))
		return err
	}

	s.mu.Lock()
	if s.epoch != epoch {
		// Disconnect ran while we were dialing.
		s.mu.Unlock()
		conn.Close()
		return nil
	}
	s.conn = conn
	s.state = StateConnected
	s.mu.Unlock()

	go s.readLoop(conn, epoch)
	s.notify(true)
	s.log.Info("session connected")
	return nil
}

// handshake dials, waits for CONNECTED, subscribes the three topics and announces the join.
func (s *Session) handshake(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if s.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+s.cfg.Token)
	}
	conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", s.cfg.URL, err)
	}

	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	var greeting frame.Frame
	if err := conn.ReadJSON(&greeting); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read greeting: %w", err)
	}
	if greeting.Command != frame.CommandConnected {
		conn.Close()
		return nil, fmt.Errorf("unexpected greeting %s: %s", greeting.Command, greeting.Message)
	}
	var who frame.Connected
	if err := json.Unmarshal(greeting.Body, &who); err == nil && who.UserID != "" && who.UserID != s.cfg.Identity {
		conn.Close()
		return nil, fmt.Errorf("server authenticated %q, session is %q", who.UserID, s.cfg.Identity)
	}
	_ = conn.SetReadDeadline(time.Time{})

	join, _ := json.Marshal(frame.ChatMessage{Type: frame.ChatTypeJoin, Sender: s.cfg.Identity})
	frames := []frame.Frame{
		{Command: frame.CommandSubscribe, Subscription: subPresence, Destination: frame.TopicOnlineUsers},
		{Command: frame.CommandSubscribe, Subscription: subInbox, Destination: frame.InboxTopic(s.cfg.Identity)},
		{Command: frame.CommandSubscribe, Subscription: subNotice, Destination: frame.NoticeTopic(s.cfg.Identity)},
		{Command: frame.CommandSend, Destination: frame.AppAddUser, Body: join},
	}
	for _, f := range frames {
		if err := s.write(conn, f); err != nil {
			conn.Close()
			return nil, fmt.Errorf("subscribe: %w", err)
		}
	}
	return conn, nil
}

// Disconnect unsubscribes, closes the socket, leaves every Room and clears presence, threads and the badge.
// Frames still in flight from the old connection are dropped. Safe to call repeatedly.
func (s *Session) Disconnect() {
	s.mu.Lock()
	wasConnected := s.state == StateConnected
	conn := s.conn
	s.conn = nil
	s.state = StateDisconnected
	s.epoch++
	s.mu.Unlock()

	if conn != nil {
		for _, id := range []string{subPresence, subInbox, subNotice} {
			_ = s.write(conn, frame.Frame{Command: frame.CommandUnsubscribe, Subscription: id})
		}
		s.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		s.writeMu.Unlock()
		conn.Close()
	}

	s.roomsMu.Lock()
	for _, r := range s.rooms {
		r.Leave()
	}
	s.roomsMu.Unlock()

	s.presence.Clear()
	s.threads.Clear()
	s.badge.Clear()

	if wasConnected {
		s.notify(false)
		s.log.Info("session disconnected")
	}
}

// Publish sends payload to an application destination. It silently does nothing when the
// session is down, the message is addressed to nobody or to self, or the content is blank.
func (s *Session) Publish(destination string, payload frame.ChatMessage) error {
	s.mu.RLock()
	conn := s.conn
	connected := s.state == StateConnected
	s.mu.RUnlock()
	if !connected || conn == nil {
		return nil
	}

	payload.Sender = s.cfg.Identity
	switch destination {
	case frame.AppDirectMessage:
		if payload.Receiver == "" || payload.Receiver == s.cfg.Identity {
			return nil
		}
		payload.Content = strings.TrimSpace(payload.Content)
		if payload.Content == "" {
			return nil
		}
		if utf8.RuneCountInString(payload.Content) > s.cfg.MaxContentLength {
			return ErrContentTooLong
		}
		payload.Type = frame.ChatTypeChat
	case frame.AppAddUser:
		payload.Type = frame.ChatTypeJoin
	default:
		return ErrUnknownDestination
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.write(conn, frame.Frame{Command: frame.CommandSend, Destination: destination, Body: body})
}

func (s *Session) SendDirectMessage(receiver, content string, hints DisplayHints) error {
	return s.Publish(frame.AppDirectMessage, frame.ChatMessage{
		Receiver:         receiver,
		Content:          content,
		SenderNickname:   hints.SenderNickname,
		ReceiverNickname: hints.ReceiverNickname,
	})
}

// OpenInbox is the "my chats" entry: it acknowledges pending activity.
func (s *Session) OpenInbox() {
	s.badge.Clear()
}

// Watch delivers connected-flag changes. Slow watchers miss updates rather than block.
func (s *Session) Watch(buf int) (<-chan bool, func()) {
	ch := make(chan bool, buf)
	s.watchMu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	s.watchMu.Unlock()

	return ch, func() {
		s.watchMu.Lock()
		if _, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(ch)
		}
		s.watchMu.Unlock()
	}
}

func (s *Session) notify(connected bool) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- connected:
		default:
		}
	}
}

func (s *Session) write(conn *websocket.Conn, f frame.Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(f)
}

func (s *Session) readLoop(conn *websocket.Conn, epoch uint64) {
	defer s.dropped(conn, epoch)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if s.current(epoch) {
				s.log.Warn("session read failed", zap.Error(err))
			}
			return
		}

		var f frame.Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			s.log.Warn("dropping undecodable frame", zap.Error(err))
			continue
		}

		switch f.Command {
		case frame.CommandMessage:
			s.dispatch(epoch, f.Destination, f.Body)
		case frame.CommandError:
			s.log.Warn("server error frame", zap.String("message", f.Message))
		}
	}
}

// dispatch routes a delivery unless the session it arrived on has been torn down.
func (s *Session) dispatch(epoch uint64, destination string, body []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.epoch != epoch {
		return
	}
	s.mux.Dispatch(destination, body)
}

func (s *Session) current(epoch uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch == epoch
}

// dropped flips a session whose socket failed to disconnected. It does not reconnect.
func (s *Session) dropped(conn *websocket.Conn, epoch uint64) {
	conn.Close()

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	s.epoch++
	s.conn = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	s.notify(false)
	s.log.Info("session dropped")
}
