package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"petcycle/internal/domain/entity"
	"petcycle/internal/realtime/frame"
	apperrors "petcycle/pkg/errors"
	"petcycle/pkg/logger"
)

// HandleClientMessage processes one inbound frame. Failures answer with an ERROR frame and
// leave the connection open.
func (m *Manager) HandleClientMessage(client *Client, raw []byte) {
	var f frame.Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		logger.Warn("WebSocket: malformed frame from %s: %v", client.UserID, err)
		client.sendFrame(frame.NewError("Invalid frame format"))
		return
	}

	switch f.Command {
	case frame.CommandPing:
		client.sendFrame(frame.Frame{Command: frame.CommandPong})

	case frame.CommandSubscribe:
		m.handleSubscribe(client, f)

	case frame.CommandUnsubscribe:
		if !client.unsubscribe(f.Subscription) {
			logger.Debug("WebSocket: %s unsubscribed unknown id %q", client.UserID, f.Subscription)
		}

	case frame.CommandSend:
		m.handleSend(client, f)

	default:
		logger.Warn("WebSocket: unknown command %q from %s", f.Command, client.UserID)
		client.sendFrame(frame.NewError("Unknown command"))
	}
}

func (m *Manager) handleSubscribe(client *Client, f frame.Frame) {
	if f.Subscription == "" {
		client.sendFrame(frame.NewError("Subscription id is required"))
		return
	}

	kind, addressee := frame.ParseTopic(f.Destination)
	switch kind {
	case frame.TopicPresence:
	case frame.TopicInbox, frame.TopicNotice:
		if addressee != client.UserID {
			logger.Warn("WebSocket: %s tried to subscribe to %s", client.UserID, f.Destination)
			client.sendFrame(frame.NewError("Forbidden destination"))
			return
		}
	default:
		client.sendFrame(frame.NewError("Unknown destination"))
		return
	}

	client.subscribe(f.Subscription, f.Destination)
}

func (m *Manager) handleSend(client *Client, f frame.Frame) {
	ctx := context.Background()

	switch f.Destination {
	case frame.AppAddUser:
		if client.markJoined() {
			if err := m.presence.Join(ctx, client.UserID); err != nil {
				client.markLeft()
				logger.Error("presence join for %s: %v", client.UserID, err)
				client.sendFrame(frame.NewError("Failed to join"))
				return
			}
		}
		m.broadcastPresence(ctx)

	case frame.AppDirectMessage:
		var msg frame.ChatMessage
		if err := json.Unmarshal(f.Body, &msg); err != nil {
			logger.Warn("WebSocket: malformed direct message from %s: %v", client.UserID, err)
			client.sendFrame(frame.NewError("Invalid message format"))
			return
		}
		if m.messenger == nil {
			client.sendFrame(frame.NewError("Messaging unavailable"))
			return
		}

		_, err := m.messenger.SendDirect(ctx, &entity.DirectMessage{
			Sender:           client.UserID,
			Receiver:         msg.Receiver,
			Content:          msg.Content,
			SenderNickname:   msg.SenderNickname,
			ReceiverNickname: msg.ReceiverNickname,
		})
		if err != nil {
			client.sendFrame(frame.NewError(errorMessage(err)))
		}

	default:
		client.sendFrame(frame.NewError("Unknown destination"))
	}
}

func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Failed to send message"
}
