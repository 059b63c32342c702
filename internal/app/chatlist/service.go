package chatlist

import (
	"context"
	"log/slog"
	"sync"

	"scrapmarket/internal/app/chatsync"
	"scrapmarket/internal/app/pager"
	"scrapmarket/internal/app/store"
	"scrapmarket/internal/domain/chat"
)

// API is the backend surface the chat list view needs: the session's chat
// operations plus the best-effort read marker.
type API interface {
	chatsync.ChatAPI
	MarkRead(ctx context.Context, id chat.ChatID) error
}

// Service owns the chat list: its pagination cursor, the badge state in the
// store, the currently open dialog session, and the push-bridge handlers
// that keep all of it fresh without disrupting the user.
type Service struct {
	api    API
	store  *store.Store
	logger *slog.Logger
	userID chat.UserID
	cursor *pager.Cursor[chat.Chat]

	mu      sync.Mutex
	session *chatsync.Session
}

// NewService builds the chat list service for one user.
func NewService(api API, st *store.Store, userID chat.UserID, pageSize int, logger *slog.Logger) *Service {
	s := &Service{
		api:    api,
		store:  st,
		logger: logger,
		userID: userID,
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	s.cursor = pager.NewCursor(func(ctx context.Context, page, limit int) ([]chat.Chat, error) {
		return api.ListChats(ctx, page, limit)
	}, pageSize, func(c chat.Chat) string { return string(c.ID) })
	return s
}

// Refresh reloads the chat list from page 1. Badges survive: the reducer
// never touches unread state on a replacing load, which is what makes the
// push-triggered background refresh silent.
func (s *Service) Refresh(ctx context.Context) error {
	if err := s.cursor.Reset(ctx); err != nil {
		return err
	}
	s.store.Dispatch(store.ChatsLoaded{Chats: s.cursor.Items(), Replace: true})
	return nil
}

// LoadMore fetches the next chat page when the list sentinel becomes
// visible.
func (s *Service) LoadMore(ctx context.Context) error {
	if err := s.cursor.Advance(ctx); err != nil {
		return err
	}
	s.store.Dispatch(store.ChatsLoaded{Chats: s.cursor.Items()})
	return nil
}

// HasMore reports whether another chat page may exist.
func (s *Service) HasMore() bool {
	return s.cursor.HasMore()
}

// OpenChat opens a dialog session, records it as the open chat and clears
// its badges. The server-side read marker is best effort.
func (s *Service) OpenChat(ctx context.Context, opts chatsync.OpenOptions) (*chatsync.Session, error) {
	session := chatsync.NewSession(s.api, s.userID, s.logger)
	if err := session.Open(ctx, opts); err != nil {
		return nil, err
	}
	threadID := session.Chat().ID

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	s.store.Dispatch(store.ChatOpened{ID: threadID})
	if err := s.api.MarkRead(ctx, threadID); err != nil {
		s.log("mark read failed", "chat_id", threadID, "error", err)
	}
	return session, nil
}

// CloseChat closes the open dialog, if any.
func (s *Service) CloseChat(ctx context.Context) {
	s.mu.Lock()
	session := s.session
	s.session = nil
	s.mu.Unlock()
	if session == nil {
		return
	}
	session.Close(ctx)
	s.store.Dispatch(store.ChatClosed{})
}

// HandleChatCreated is the push-bridge callback for "chat created" events:
// badge the thread and refetch the list in the background, without touching
// scroll position or unread state.
func (s *Service) HandleChatCreated(id chat.ChatID) {
	s.store.Dispatch(store.ChatCreated{ID: id})
	if err := s.Refresh(context.Background()); err != nil {
		s.log("background chat refresh failed", "error", err)
	}
}

// HandleChatMessage is the push-bridge callback for "new message" events.
// Messages for the open dialog go through the session's reconciler; anything
// else just flags the thread unread.
func (s *Service) HandleChatMessage(id chat.ChatID, msg chat.Message) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	if session != nil && session.Chat().ID == id {
		if err := session.Receive(msg); err != nil {
			s.log("push message rejected by session", "chat_id", id, "error", err)
		}
		return
	}
	s.store.Dispatch(store.MessageArrived{ChatID: id})
}

func (s *Service) log(msg string, attrs ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, attrs...)
	}
}
