package store

import "scrapmarket/internal/domain/chat"

// ChatsLoaded replaces or extends the chat list after a fetch. A replacing
// load (silent background refresh included) never touches the badge maps, so
// unread state survives refetches.
type ChatsLoaded struct {
	Chats   []chat.Chat
	Replace bool
}

func (ChatsLoaded) Kind() string { return "chats.loaded" }

// ChatCreated marks a push-announced thread as "new" for badge display until
// the user opens it. The announcement echoes back to the creator too, so the
// currently open chat never gets the badge.
type ChatCreated struct {
	ID chat.ChatID
}

func (ChatCreated) Kind() string { return "chats.created" }

// MessageArrived flags a thread unread unless it is the one currently open.
type MessageArrived struct {
	ChatID chat.ChatID
}

func (MessageArrived) Kind() string { return "chats.message_arrived" }

// ChatOpened records the open dialog and clears its badges.
type ChatOpened struct {
	ID chat.ChatID
}

func (ChatOpened) Kind() string { return "chats.opened" }

// ChatClosed clears the open-dialog marker.
type ChatClosed struct{}

func (ChatClosed) Kind() string { return "chats.closed" }

// reduce is the pure transition function: it never mutates its input.
func reduce(st State, a Action) State {
	next := st.clone()
	switch act := a.(type) {
	case ChatsLoaded:
		if act.Replace {
			next.Chats = append([]chat.Chat(nil), act.Chats...)
			return next
		}
		present := make(map[chat.ChatID]struct{}, len(next.Chats))
		for _, c := range next.Chats {
			present[c.ID] = struct{}{}
		}
		for _, c := range act.Chats {
			if _, ok := present[c.ID]; ok {
				continue
			}
			present[c.ID] = struct{}{}
			next.Chats = append(next.Chats, c)
		}
	case ChatCreated:
		if act.ID != "" && act.ID != next.OpenChatID {
			next.New[act.ID] = true
		}
	case MessageArrived:
		if act.ChatID != "" && act.ChatID != next.OpenChatID {
			next.Unread[act.ChatID] = true
		}
	case ChatOpened:
		next.OpenChatID = act.ID
		delete(next.Unread, act.ID)
		delete(next.New, act.ID)
	case ChatClosed:
		next.OpenChatID = ""
	}
	return next
}
