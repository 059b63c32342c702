package store

import (
	"log/slog"
	"sync"

	"scrapmarket/internal/domain/chat"
)

// Action is a state mutation intent routed through Dispatch.
type Action interface {
	Kind() string
}

// State is the client-side view of the chat list. It is owned exclusively by
// the Store; readers get copies and mutate only by dispatching actions.
type State struct {
	Chats      []chat.Chat
	Unread     map[chat.ChatID]bool
	New        map[chat.ChatID]bool
	OpenChatID chat.ChatID
}

// Store is the single mutable owner of chat-list state. All writes go
// through Dispatch and are applied by the pure reducer; subscribers observe
// every resulting snapshot.
type Store struct {
	mu     sync.Mutex
	state  State
	subs   map[int]func(State)
	nextID int
	logger *slog.Logger
}

// New builds an empty store.
func New(logger *slog.Logger) *Store {
	return &Store{
		state: State{
			Unread: map[chat.ChatID]bool{},
			New:    map[chat.ChatID]bool{},
		},
		subs:   make(map[int]func(State)),
		logger: logger,
	}
}

// Dispatch applies an action and notifies subscribers with the new snapshot.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	s.state = reduce(s.state, a)
	snapshot := s.state.clone()
	listeners := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Debug("store dispatch", "action", a.Kind())
	}
	for _, fn := range listeners {
		fn(snapshot)
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers a listener for state changes and returns its
// unsubscribe function.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (st State) clone() State {
	out := State{
		Chats:      append([]chat.Chat(nil), st.Chats...),
		Unread:     make(map[chat.ChatID]bool, len(st.Unread)),
		New:        make(map[chat.ChatID]bool, len(st.New)),
		OpenChatID: st.OpenChatID,
	}
	for k, v := range st.Unread {
		out.Unread[k] = v
	}
	for k, v := range st.New {
		out.New[k] = v
	}
	return out
}
