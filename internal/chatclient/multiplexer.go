package chatclient

import (
	"go.uber.org/zap"

	"petcycle/internal/realtime/frame"
)

// Multiplexer routes decoded topic events to the presence set, the threads and the badge.
type Multiplexer struct {
	self     string
	presence *Presence
	threads  *Threads
	badge    *Badge
	log      *zap.Logger
}

func NewMultiplexer(self string, presence *Presence, threads *Threads, badge *Badge, log *zap.Logger) *Multiplexer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Multiplexer{self: self, presence: presence, threads: threads, badge: badge, log: log}
}

// Dispatch decodes one MESSAGE body. Malformed bodies are logged and dropped.
func (m *Multiplexer) Dispatch(destination string, body []byte) {
	ev, err := frame.Decode(destination, body, m.self)
	if err != nil {
		m.log.Warn("dropping malformed frame", zap.String("destination", destination), zap.Error(err))
		return
	}
	m.Route(ev)
}

func (m *Multiplexer) Route(ev frame.Event) {
	switch e := ev.(type) {
	case frame.PresenceEvent:
		m.presence.Replace(e.Online)
	case frame.InboxEvent:
		m.threads.Append(e.Peer, e.Message)
	case frame.NoticeEvent:
		m.badge.Set()
	case frame.IgnoredEvent:
		m.log.Debug("ignoring event", zap.String("destination", e.Destination), zap.String("reason", e.Reason))
	}
}
