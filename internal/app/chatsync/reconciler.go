package chatsync

import (
	"sort"

	"scrapmarket/internal/domain/chat"
)

// Result is the outcome of one reconciliation pass.
type Result struct {
	// Messages is the render-ready list: confirmed messages plus still
	// unconfirmed pending ones, ascending by creation time.
	Messages []chat.Message
	// Resolved lists the temporary ids of pending entries matched by a
	// confirmed message; the caller purges them from the buffer.
	Resolved []chat.MessageID
}

// Reconcile merges server-confirmed messages with the pending buffer into a
// single time-ordered, duplicate-free list. A pending entry counts as
// resolved when any confirmed message carries the same sender and trimmed
// content; the timestamp is deliberately ignored for that check since the
// local and server clocks differ by network latency. The pass is idempotent:
// running it again over its own output adds nothing.
func Reconcile(confirmed, pending []chat.Message) Result {
	var res Result
	res.Messages = make([]chat.Message, 0, len(confirmed)+len(pending))

	seen := make(map[chat.Key]struct{}, len(confirmed))
	seenIDs := make(map[chat.MessageID]struct{}, len(confirmed))
	byContent := make(map[chat.ContentKey]struct{}, len(confirmed))
	for _, msg := range confirmed {
		if msg.ID != "" {
			if _, ok := seenIDs[msg.ID]; ok {
				continue
			}
			seenIDs[msg.ID] = struct{}{}
		}
		key := chat.KeyOf(msg)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		byContent[chat.ContentKeyOf(msg)] = struct{}{}
		msg.Pending = false
		res.Messages = append(res.Messages, msg)
	}

	for _, entry := range pending {
		if _, ok := byContent[chat.ContentKeyOf(entry)]; ok {
			res.Resolved = append(res.Resolved, entry.ID)
			continue
		}
		entry.Pending = true
		res.Messages = append(res.Messages, entry)
	}

	sort.SliceStable(res.Messages, func(i, j int) bool {
		return res.Messages[i].SortTime().Before(res.Messages[j].SortTime())
	})
	return res
}

// Sweep runs a reconciliation pass and purges resolved entries from the
// buffer. It is safe to repeat: resolving an already-removed entry is a
// no-op.
func Sweep(buf *Buffer, chatID chat.ChatID, confirmed []chat.Message) []chat.Message {
	res := Reconcile(confirmed, buf.Pending(chatID))
	for _, id := range res.Resolved {
		buf.Resolve(id)
	}
	return res.Messages
}
