// Package frame defines the JSON frames exchanged over /ws, the topic and application
// destinations, and the decoding boundary that turns inbound bodies into typed events.
package frame

import (
	"encoding/json"
	"strings"
)

type Command string

const (
	CommandSubscribe   Command = "SUBSCRIBE"
	CommandUnsubscribe Command = "UNSUBSCRIBE"
	CommandSend        Command = "SEND"
	CommandPing        Command = "PING"

	CommandConnected Command = "CONNECTED"
	CommandMessage   Command = "MESSAGE"
	CommandError     Command = "ERROR"
	CommandPong      Command = "PONG"
)

type Frame struct {
	Command      Command         `json:"command"`
	Destination  string          `json:"destination,omitempty"`
	Subscription string          `json:"subscription,omitempty"`
	Body         json.RawMessage `json:"body,omitempty"`
	Message      string          `json:"message,omitempty"`
}

const (
	TopicOnlineUsers = "/topic/onlineUsers"
	inboxPrefix      = "/topic/inbox."
	noticePrefix     = "/topic/notice."

	AppAddUser       = "/app/chat.addUser"
	AppDirectMessage = "/app/chat.dm"
)

func InboxTopic(userID string) string  { return inboxPrefix + userID }
func NoticeTopic(userID string) string { return noticePrefix + userID }

type TopicKind int

const (
	TopicUnknown TopicKind = iota
	TopicPresence
	TopicInbox
	TopicNotice
)

// ParseTopic classifies a destination and returns the identity a personal topic is addressed to.
func ParseTopic(destination string) (TopicKind, string) {
	switch {
	case destination == TopicOnlineUsers:
		return TopicPresence, ""
	case strings.HasPrefix(destination, inboxPrefix) && len(destination) > len(inboxPrefix):
		return TopicInbox, strings.TrimPrefix(destination, inboxPrefix)
	case strings.HasPrefix(destination, noticePrefix) && len(destination) > len(noticePrefix):
		return TopicNotice, strings.TrimPrefix(destination, noticePrefix)
	default:
		return TopicUnknown, ""
	}
}

func Encode(f Frame) ([]byte, error) {
	return json.Marshal(f)
}

// NewMessage wraps payload in a MESSAGE frame for one subscription.
func NewMessage(destination, subscription string, body []byte) Frame {
	return Frame{
		Command:      CommandMessage,
		Destination:  destination,
		Subscription: subscription,
		Body:         json.RawMessage(body),
	}
}

func NewError(message string) Frame {
	return Frame{Command: CommandError, Message: message}
}
