package push

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scrapmarket/internal/domain/chat"
)

// EventType discriminates push payloads.
type EventType string

const (
	EventChatMessage EventType = "chat_message"
	EventChatCreated EventType = "chat_created"
)

var (
	ErrUnknownEventType = errors.New("push: unknown event type")
	ErrMissingChatID    = errors.New("push: missing chat id")
	ErrMissingMessage   = errors.New("push: missing message payload")
	ErrInvalidMessage   = errors.New("push: message missing id or sender")
)

// Event is a decoded, validated push notification. The core engine only
// ever sees these; raw payload strings stay at this boundary.
type Event struct {
	Type    EventType
	ChatID  chat.ChatID
	Message *chat.Message
}

// The wire envelope: a notification header plus a data block whose message
// field is itself a JSON-encoded string.
type envelope struct {
	Notification json.RawMessage `json:"notification"`
	Data         envelopeData    `json:"data"`
}

type envelopeData struct {
	Type    string `json:"type"`
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

type envelopeMessage struct {
	ID        string `json:"id"`
	ChatID    string `json:"chat_id"`
	SenderID  string `json:"sender_id"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
}

// DecodeEnvelope parses a raw push payload, including the nested
// JSON-in-JSON message, into a validated Event. Callers drop decode errors
// with a logged diagnostic; they never reach the user.
func DecodeEnvelope(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("push: decode envelope: %w", err)
	}
	if env.Data.ChatID == "" {
		return Event{}, ErrMissingChatID
	}
	switch EventType(env.Data.Type) {
	case EventChatCreated:
		return Event{Type: EventChatCreated, ChatID: chat.ChatID(env.Data.ChatID)}, nil
	case EventChatMessage:
		if env.Data.Message == "" {
			return Event{}, ErrMissingMessage
		}
		var wire envelopeMessage
		if err := json.Unmarshal([]byte(env.Data.Message), &wire); err != nil {
			return Event{}, fmt.Errorf("push: decode nested message: %w", err)
		}
		if wire.ID == "" || wire.SenderID == "" {
			return Event{}, ErrInvalidMessage
		}
		msg := chat.Message{
			ID:        chat.MessageID(wire.ID),
			ChatID:    chat.ChatID(env.Data.ChatID),
			SenderID:  chat.UserID(wire.SenderID),
			Content:   wire.Content,
			Kind:      chat.MessageKind(wire.Type),
			CreatedAt: parseTimestamp(wire.CreatedAt),
		}
		if wire.ChatID != "" {
			msg.ChatID = chat.ChatID(wire.ChatID)
		}
		if msg.Kind == "" {
			msg.Kind = chat.KindText
		}
		return Event{Type: EventChatMessage, ChatID: msg.ChatID, Message: &msg}, nil
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEventType, env.Data.Type)
	}
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}
