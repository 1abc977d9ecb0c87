package frame

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

type EventKind string

const (
	EventPresence EventKind = "presence"
	EventInbox    EventKind = "inbox"
	EventNotice   EventKind = "notice"
	EventIgnored  EventKind = "ignored"
)

// Event is the tagged union produced by Decode.
type Event interface {
	Kind() EventKind
}

type PresenceEvent struct {
	Online []string
}

type InboxEvent struct {
	Peer    string
	Message ChatMessage
}

type NoticeEvent struct {
	Notice Notice
}

// IgnoredEvent covers well-formed bodies nothing consumes, such as unknown notice kinds.
type IgnoredEvent struct {
	Destination string
	Reason      string
}

func (PresenceEvent) Kind() EventKind { return EventPresence }
func (InboxEvent) Kind() EventKind    { return EventInbox }
func (NoticeEvent) Kind() EventKind   { return EventNotice }
func (IgnoredEvent) Kind() EventKind  { return EventIgnored }

// Decode converts a MESSAGE frame body into an Event for the local identity self.
// Malformed bodies return an error; bodies that parse but carry nothing actionable
// return IgnoredEvent.
func Decode(destination string, body []byte, self string) (Event, error) {
	kind, addressee := ParseTopic(destination)
	switch kind {
	case TopicPresence:
		online, err := ParsePresence(body)
		if err != nil {
			return nil, err
		}
		return PresenceEvent{Online: online}, nil

	case TopicInbox:
		if addressee != self {
			return IgnoredEvent{Destination: destination, Reason: "addressed to another identity"}, nil
		}
		var msg ChatMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil, fmt.Errorf("decode inbox message: %w", err)
		}
		peer, ok := PeerOf(msg, self)
		if !ok {
			return IgnoredEvent{Destination: destination, Reason: "message does not involve local identity"}, nil
		}
		return InboxEvent{Peer: peer, Message: msg}, nil

	case TopicNotice:
		if addressee != self {
			return IgnoredEvent{Destination: destination, Reason: "addressed to another identity"}, nil
		}
		var notice Notice
		if err := json.Unmarshal(body, &notice); err != nil {
			return nil, fmt.Errorf("decode notice: %w", err)
		}
		if notice.Type != NoticeNewMessage {
			return IgnoredEvent{Destination: destination, Reason: "notice type " + notice.Type}, nil
		}
		return NoticeEvent{Notice: notice}, nil

	default:
		return IgnoredEvent{Destination: destination, Reason: "unknown destination"}, nil
	}
}

// PeerOf returns whichever side of msg is not self.
func PeerOf(msg ChatMessage, self string) (string, bool) {
	switch {
	case msg.Sender == self && msg.Receiver != "" && msg.Receiver != self:
		return msg.Receiver, true
	case msg.Receiver == self && msg.Sender != "" && msg.Sender != self:
		return msg.Sender, true
	default:
		return "", false
	}
}

// ParsePresence accepts the online set as a JSON array, a JSON string holding a delimited
// list, or a bare delimited string. Empty input yields an empty set.
func ParsePresence(body []byte) ([]string, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return []string{}, nil
	}

	switch trimmed[0] {
	case '[':
		var list []string
		if err := json.Unmarshal([]byte(trimmed), &list); err == nil {
			return normalizeIDs(list), nil
		}
		// Arrays of non-strings fall through to the delimited parse.
		return splitDelimited(trimmed), nil
	case '"':
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
			return nil, fmt.Errorf("decode presence string: %w", err)
		}
		return ParsePresence([]byte(s))
	case '{':
		return nil, fmt.Errorf("decode presence: unexpected object")
	default:
		return splitDelimited(trimmed), nil
	}
}

func splitDelimited(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ',', ' ', '\t', '\n', '\r', '[', ']', '"', '\'':
			return true
		}
		return false
	})
	return normalizeIDs(fields)
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
