package chatsync

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"scrapmarket/internal/app/pager"
	"scrapmarket/internal/domain/chat"
)

// State of an open chat dialog.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateSending       State = "sending"
	StateReceiving     State = "receiving"
	StateClosed        State = "closed"
)

var (
	ErrSessionClosed  = errors.New("chatsync: session is closed")
	ErrSessionNotOpen = errors.New("chatsync: session is not open")
	ErrAlreadyOpen    = errors.New("chatsync: session already open")
)

// ChatAPI is the slice of the backend surface a session needs. The REST
// client implements it; tests substitute fakes.
type ChatAPI interface {
	ListChats(ctx context.Context, page, limit int) ([]chat.Chat, error)
	CreateChat(ctx context.Context, counterparty chat.UserID, listingID, topic string) (chat.Chat, error)
	ListMessages(ctx context.Context, id chat.ChatID, page, limit int) ([]chat.Message, error)
	SendMessage(ctx context.Context, id chat.ChatID, content string) (chat.Message, error)
	Subscribe(ctx context.Context, id chat.ChatID, deviceToken string) error
	Unsubscribe(ctx context.Context, id chat.ChatID, deviceToken string) error
}

// OpenOptions controls how a dialog resolves its chat thread on open.
type OpenOptions struct {
	// Existing reuses an already-selected chat and skips the search/create
	// step entirely.
	Existing *chat.Chat
	// Counterparty and ListingID identify the thread to search for or
	// create when no chat is selected yet.
	Counterparty chat.UserID
	ListingID    string
	Topic        string
	// DeviceToken, when set, registers this device for push on the thread.
	DeviceToken string
	// PageSize for the message history cursor. Defaults to 50.
	PageSize int
}

// Session drives one open chat dialog: thread resolution, history
// pagination, optimistic sends and reconciliation of confirmed messages
// arriving from REST or push.
type Session struct {
	api    ChatAPI
	buffer *Buffer
	logger *slog.Logger
	userID chat.UserID

	mu       sync.Mutex
	state    State
	current  chat.Chat
	history  *pager.Cursor[chat.Message]
	rendered []chat.Message
	compose  string
	token    string
}

// NewSession builds a dialog session for the given user.
func NewSession(api ChatAPI, userID chat.UserID, logger *slog.Logger) *Session {
	return &Session{
		api:    api,
		buffer: NewBuffer(),
		logger: logger,
		userID: userID,
		state:  StateUninitialized,
	}
}

// Open resolves the chat thread (reuse, find or create), loads the first
// page of history and registers the device for push. It transitions the
// session from Uninitialized through Initializing to Ready.
func (s *Session) Open(ctx context.Context, opts OpenOptions) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != StateUninitialized {
		s.mu.Unlock()
		return ErrAlreadyOpen
	}
	s.state = StateInitializing
	s.mu.Unlock()

	thread, err := s.resolveThread(ctx, opts)
	if err != nil {
		s.setState(StateUninitialized)
		return err
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	cursor := pager.NewCursor(func(ctx context.Context, page, limit int) ([]chat.Message, error) {
		return s.api.ListMessages(ctx, thread.ID, page, limit)
	}, pageSize, func(m chat.Message) string { return string(m.ID) })
	if err := cursor.Reset(ctx); err != nil {
		s.setState(StateUninitialized)
		return err
	}

	if opts.DeviceToken != "" {
		if err := s.api.Subscribe(ctx, thread.ID, opts.DeviceToken); err != nil {
			s.log("push subscribe failed", "chat_id", thread.ID, "error", err)
		}
	}

	s.mu.Lock()
	s.current = thread
	s.history = cursor
	s.token = opts.DeviceToken
	s.resweepLocked()
	s.state = StateReady
	s.mu.Unlock()
	return nil
}

// Send enqueues an optimistic message, clears the compose input and issues
// the send request. On failure the entry is rolled back and the original
// text restored for retry.
func (s *Session) Send(ctx context.Context, content string) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state == StateUninitialized || s.state == StateInitializing {
		s.mu.Unlock()
		return ErrSessionNotOpen
	}
	chatID := s.current.ID
	entry, err := s.buffer.Enqueue(chatID, s.userID, content)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.compose = ""
	s.state = StateSending
	s.resweepLocked()
	s.mu.Unlock()

	confirmed, sendErr := s.api.SendMessage(ctx, chatID, entry.Content)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSending {
		s.state = StateReady
	}
	if sendErr != nil {
		if original, ok := s.buffer.Rollback(entry.ID); ok {
			s.compose = original
		}
		s.resweepLocked()
		return sendErr
	}
	if s.history != nil {
		s.mergeConfirmedLocked([]chat.Message{confirmed})
	}
	s.resweepLocked()
	return nil
}

// Receive merges confirmed messages arriving out-of-band (push channel or a
// background refresh) through the reconciler.
func (s *Session) Receive(msgs ...chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrSessionClosed
	}
	if s.state == StateUninitialized || s.state == StateInitializing {
		return ErrSessionNotOpen
	}
	prev := s.state
	s.state = StateReceiving
	s.mergeConfirmedLocked(msgs)
	s.resweepLocked()
	if prev == StateSending {
		s.state = prev
	} else {
		s.state = StateReady
	}
	return nil
}

// LoadOlder fetches the next history page and re-runs reconciliation.
func (s *Session) LoadOlder(ctx context.Context) error {
	s.mu.Lock()
	cursor := s.history
	state := s.state
	s.mu.Unlock()
	if state == StateClosed {
		return ErrSessionClosed
	}
	if cursor == nil {
		return ErrSessionNotOpen
	}
	if err := cursor.Advance(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.resweepLocked()
	s.mu.Unlock()
	return nil
}

// Close detaches the dialog: best-effort push unregistration, transient
// pending entries discarded, no further sends or receives accepted.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	chatID := s.current.ID
	token := s.token
	s.state = StateClosed
	s.mu.Unlock()

	if token != "" && chatID != "" {
		if err := s.api.Unsubscribe(ctx, chatID, token); err != nil {
			s.log("push unsubscribe failed", "chat_id", chatID, "error", err)
		}
	}
	s.buffer.Discard(chatID)
}

// Messages returns the current render-ready list.
func (s *Session) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chat.Message, len(s.rendered))
	copy(out, s.rendered)
	return out
}

// Chat returns the resolved thread.
func (s *Session) Chat() chat.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// State returns the current dialog state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Compose returns the current compose-input text.
func (s *Session) Compose() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compose
}

// SetCompose records the compose-input text as the user types.
func (s *Session) SetCompose(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compose = text
}

// HasMoreHistory reports whether older pages may exist.
func (s *Session) HasMoreHistory() bool {
	s.mu.Lock()
	cursor := s.history
	s.mu.Unlock()
	if cursor == nil {
		return false
	}
	return cursor.HasMore()
}

func (s *Session) resolveThread(ctx context.Context, opts OpenOptions) (chat.Chat, error) {
	if opts.Existing != nil {
		return *opts.Existing, nil
	}
	if err := chat.NewChatRequest(s.userID, opts.Counterparty); err != nil {
		return chat.Chat{}, err
	}
	// Search the user's threads for an existing (listing, counterparty)
	// match before creating a new one.
	const searchLimit = 100
	existing, err := s.api.ListChats(ctx, 1, searchLimit)
	if err == nil {
		for _, c := range existing {
			if c.Matches(opts.ListingID, opts.Counterparty) {
				return c, nil
			}
		}
	} else {
		s.log("chat search failed, creating new thread", "error", err)
	}
	return s.api.CreateChat(ctx, opts.Counterparty, opts.ListingID, strings.TrimSpace(opts.Topic))
}

// mergeConfirmedLocked folds confirmed messages into the history list,
// deduplicating by server id. Push-delivered and REST-fetched messages go
// through the same path so arrival order does not matter.
func (s *Session) mergeConfirmedLocked(msgs []chat.Message) {
	if s.history == nil {
		return
	}
	confirmed := make([]chat.Message, 0, len(msgs))
	for _, m := range msgs {
		m.Pending = false
		confirmed = append(confirmed, m)
	}
	s.history.Merge(confirmed)
}

func (s *Session) resweepLocked() {
	if s.history == nil {
		s.rendered = nil
		return
	}
	s.rendered = Sweep(s.buffer, s.current.ID, s.history.Items())
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) log(msg string, attrs ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, attrs...)
	}
}
