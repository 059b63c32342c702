package chat

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrContentRequired = errors.New("chat: message content is required")
	ErrSenderRequired  = errors.New("chat: sender id is required")
	ErrChatRequired    = errors.New("chat: chat id is required")
)

type MessageID string
type UserID string

// PendingIDPrefix marks locally generated ids so they can never collide with
// server-assigned ones.
const PendingIDPrefix = "pending-"

type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindVideo MessageKind = "video"
	KindAudio MessageKind = "audio"
	KindFile  MessageKind = "file"
)

// Attachment carries metadata for non-text message kinds.
type Attachment struct {
	URL             string
	Name            string
	MIMEType        string
	SizeBytes       int64
	DurationSeconds float64
}

// Message is a single chat message, either confirmed by the server or a local
// pending entry awaiting confirmation.
type Message struct {
	ID         MessageID
	ChatID     ChatID
	SenderID   UserID
	Content    string
	Kind       MessageKind
	Attachment *Attachment
	CreatedAt  time.Time
	Pending    bool
}

// IsPendingID reports whether the id was generated locally.
func (m Message) IsPendingID() bool {
	return strings.HasPrefix(string(m.ID), PendingIDPrefix)
}

// Key identifies a confirmed message for deduplication. Server ids never
// match local ids, so identity is structural: sender, trimmed content and
// creation time.
type Key struct {
	SenderID  UserID
	Content   string
	CreatedAt int64
}

// KeyOf returns the full dedup key of a message.
func KeyOf(m Message) Key {
	return Key{
		SenderID:  m.SenderID,
		Content:   strings.TrimSpace(m.Content),
		CreatedAt: m.CreatedAt.UnixMilli(),
	}
}

// ContentKey identifies a message by sender and trimmed content only. Used
// when matching a pending entry against a confirmed one, where the two
// timestamps differ by network latency.
type ContentKey struct {
	SenderID UserID
	Content  string
}

// ContentKeyOf returns the sender+content key of a message.
func ContentKeyOf(m Message) ContentKey {
	return ContentKey{SenderID: m.SenderID, Content: strings.TrimSpace(m.Content)}
}

// SortTime is the ordering timestamp of a message. Zero or unset timestamps
// order as epoch 0 so broken entries surface at the top instead of breaking
// the sort.
func (m Message) SortTime() time.Time {
	if m.CreatedAt.IsZero() {
		return time.Unix(0, 0)
	}
	return m.CreatedAt
}

// Validate checks the minimum shape of an outgoing text message.
func (m Message) Validate() error {
	if m.ChatID == "" {
		return ErrChatRequired
	}
	if m.SenderID == "" {
		return ErrSenderRequired
	}
	if m.Kind == KindText || m.Kind == "" {
		if strings.TrimSpace(m.Content) == "" {
			return ErrContentRequired
		}
	}
	return nil
}
