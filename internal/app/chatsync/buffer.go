package chatsync

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"scrapmarket/internal/domain/chat"
)

// Buffer holds locally-created messages that were submitted but not yet
// confirmed by the server. Entries leave the buffer either explicitly
// (Resolve, Rollback) or implicitly when the reconciler finds a structurally
// matching confirmed message.
type Buffer struct {
	mu      sync.Mutex
	entries map[chat.MessageID]chat.Message
	order   []chat.MessageID
}

// NewBuffer builds an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{entries: make(map[chat.MessageID]chat.Message)}
}

// NewTempID generates a session-unique local message id: time-based with a
// random suffix, carrying the pending prefix so it can never be mistaken for
// a server id.
func NewTempID() chat.MessageID {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return chat.MessageID(fmt.Sprintf("%s%d-%s", chat.PendingIDPrefix, time.Now().UnixMilli(), suffix))
}

// Enqueue stores a pending text message and returns it. Content is trimmed;
// empty content is rejected before anything is buffered.
func (b *Buffer) Enqueue(chatID chat.ChatID, sender chat.UserID, content string) (chat.Message, error) {
	msg := chat.Message{
		ID:        NewTempID(),
		ChatID:    chatID,
		SenderID:  sender,
		Content:   strings.TrimSpace(content),
		Kind:      chat.KindText,
		CreatedAt: time.Now().UTC(),
		Pending:   true,
	}
	if err := msg.Validate(); err != nil {
		return chat.Message{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[msg.ID] = msg
	b.order = append(b.order, msg.ID)
	return msg, nil
}

// Resolve removes an entry after server acknowledgement (direct or via the
// reconciler sweep). It reports whether the entry existed.
func (b *Buffer) Resolve(id chat.MessageID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remove(id)
}

// Rollback removes a failed entry and returns its original content so the
// caller can restore the compose input for retry.
func (b *Buffer) Rollback(id chat.MessageID) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.entries[id]
	if !ok {
		return "", false
	}
	b.remove(id)
	return entry.Content, true
}

// Pending returns the buffered entries for one chat in enqueue order.
func (b *Buffer) Pending(chatID chat.ChatID) []chat.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []chat.Message
	for _, id := range b.order {
		entry, ok := b.entries[id]
		if !ok || entry.ChatID != chatID {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// Discard drops all entries for a chat. Pending entries are transient and do
// not survive a dialog close.
func (b *Buffer) Discard(chatID chat.ChatID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range append([]chat.MessageID(nil), b.order...) {
		if entry, ok := b.entries[id]; ok && entry.ChatID == chatID {
			b.remove(id)
		}
	}
}

// Len returns the total number of buffered entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

func (b *Buffer) remove(id chat.MessageID) bool {
	if _, ok := b.entries[id]; !ok {
		return false
	}
	delete(b.entries, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}
