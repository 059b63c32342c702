package stubapi

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"scrapmarket/internal/domain/catalog"
	"scrapmarket/internal/domain/chat"
)

var (
	ErrChatNotFound   = errors.New("stubapi: chat not found")
	ErrNotParticipant = errors.New("stubapi: not a chat participant")
)

// Store is the in-memory backing state of the stub marketplace API. It
// exists for development and end-to-end tests; nothing persists.
type Store struct {
	mu            sync.RWMutex
	chats         map[chat.ChatID]*chat.Chat
	messages      map[chat.ChatID][]chat.Message
	subscriptions map[chat.ChatID]map[string]struct{}
	unread        map[chat.ChatID]map[chat.UserID]bool
	listings      []catalog.Listing
	users         []catalog.User
	companies     []catalog.Company
	materials     []catalog.Material
}

// NewStore builds an empty store.
func NewStore() *Store {
	return &Store{
		chats:         make(map[chat.ChatID]*chat.Chat),
		messages:      make(map[chat.ChatID][]chat.Message),
		subscriptions: make(map[chat.ChatID]map[string]struct{}),
		unread:        make(map[chat.ChatID]map[chat.UserID]bool),
	}
}

// SeedCatalog loads browsing fixtures.
func (s *Store) SeedCatalog(listings []catalog.Listing, users []catalog.User, companies []catalog.Company, materials []catalog.Material) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = append(s.listings[:0], listings...)
	s.users = append(s.users[:0], users...)
	s.companies = append(s.companies[:0], companies...)
	s.materials = append(s.materials[:0], materials...)
}

// ListChats returns one page of the user's threads, newest activity first.
func (s *Store) ListChats(userID chat.UserID, page, limit int) []chat.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []chat.Chat
	for _, c := range s.chats {
		if c.HasParticipant(userID) {
			rows = append(rows, *c)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].UpdatedAt.After(rows[j].UpdatedAt)
	})
	return pageSlice(rows, page, limit)
}

// GetChat returns a thread by id.
func (s *Store) GetChat(id chat.ChatID) (chat.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[id]
	if !ok {
		return chat.Chat{}, ErrChatNotFound
	}
	return *c, nil
}

// CreateChat starts a thread between two users, reusing an existing one for
// the same (listing, participants) pair.
func (s *Store) CreateChat(creator, counterparty chat.UserID, listingID, topic string) (chat.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.chats {
		if existing.Matches(listingID, counterparty) && existing.HasParticipant(creator) {
			return *existing, false
		}
	}
	now := time.Now().UTC()
	created := &chat.Chat{
		ID:           chat.ChatID(uuid.NewString()),
		Topic:        strings.TrimSpace(topic),
		Status:       chat.StatusOpen,
		CreatedBy:    creator,
		Participants: []chat.UserID{creator, counterparty},
		ListingID:    listingID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.chats[created.ID] = created
	return *created, true
}

// ListMessages returns one page of a thread's history, newest first: page 1
// holds the latest messages and higher pages walk back in time, matching how
// a client loads history while scrolling up.
func (s *Store) ListMessages(id chat.ChatID, page, limit int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.chats[id]; !ok {
		return nil, ErrChatNotFound
	}
	history := s.messages[id]
	reversed := make([]chat.Message, len(history))
	for i, msg := range history {
		reversed[len(history)-1-i] = msg
	}
	return pageSlice(reversed, page, limit), nil
}

// AppendMessage stores a confirmed message and bumps the thread's activity.
func (s *Store) AppendMessage(id chat.ChatID, sender chat.UserID, content string) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	thread, ok := s.chats[id]
	if !ok {
		return chat.Message{}, ErrChatNotFound
	}
	if !thread.HasParticipant(sender) {
		return chat.Message{}, ErrNotParticipant
	}
	msg := chat.Message{
		ID:        chat.MessageID(uuid.NewString()),
		ChatID:    id,
		SenderID:  sender,
		Content:   strings.TrimSpace(content),
		Kind:      chat.KindText,
		CreatedAt: time.Now().UTC(),
	}
	s.messages[id] = append(s.messages[id], msg)
	thread.LastMessage = &msg
	thread.UpdatedAt = msg.CreatedAt
	for _, p := range thread.Participants {
		if p == sender {
			continue
		}
		if s.unread[id] == nil {
			s.unread[id] = make(map[chat.UserID]bool)
		}
		s.unread[id][p] = true
	}
	return msg, nil
}

// Subscribe registers a device token on a thread.
func (s *Store) Subscribe(id chat.ChatID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[id]; !ok {
		return ErrChatNotFound
	}
	if s.subscriptions[id] == nil {
		s.subscriptions[id] = make(map[string]struct{})
	}
	s.subscriptions[id][token] = struct{}{}
	return nil
}

// Unsubscribe removes a device token from a thread.
func (s *Store) Unsubscribe(id chat.ChatID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[id]; !ok {
		return ErrChatNotFound
	}
	delete(s.subscriptions[id], token)
	return nil
}

// MarkRead clears the unread marker for a user on a thread.
func (s *Store) MarkRead(id chat.ChatID, user chat.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[id]; !ok {
		return ErrChatNotFound
	}
	delete(s.unread[id], user)
	return nil
}

// ListListings returns one page of seeded listings under the filters.
func (s *Store) ListListings(filters catalog.ListingFilters, page, limit int) []catalog.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	filters = filters.Normalized()
	var rows []catalog.Listing
	for _, l := range s.listings {
		if filters.Query != "" && !strings.Contains(strings.ToLower(l.Title), strings.ToLower(filters.Query)) {
			continue
		}
		if filters.Category != "" && !strings.EqualFold(l.Category, filters.Category) {
			continue
		}
		if filters.MaterialID != "" && l.MaterialID != filters.MaterialID {
			continue
		}
		if filters.CompanyID != "" && l.CompanyID != filters.CompanyID {
			continue
		}
		if filters.Status != "" && l.Status != filters.Status {
			continue
		}
		if filters.Auction != nil && l.Auction != *filters.Auction {
			continue
		}
		rows = append(rows, l)
	}
	return pageSlice(rows, page, limit)
}

// ListUsers returns one page of seeded users under the filters.
func (s *Store) ListUsers(filters catalog.UserFilters, page, limit int) []catalog.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	filters = filters.Normalized()
	var rows []catalog.User
	for _, u := range s.users {
		if filters.Query != "" && !strings.Contains(strings.ToLower(u.Name), strings.ToLower(filters.Query)) {
			continue
		}
		if filters.CompanyID != "" && u.CompanyID != filters.CompanyID {
			continue
		}
		if filters.Role != "" && !strings.EqualFold(u.Role, filters.Role) {
			continue
		}
		rows = append(rows, u)
	}
	return pageSlice(rows, page, limit)
}

// ListCompanies returns one page of seeded companies.
func (s *Store) ListCompanies(page, limit int) []catalog.Company {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pageSlice(s.companies, page, limit)
}

// ListMaterials returns one page of seeded materials.
func (s *Store) ListMaterials(page, limit int) []catalog.Material {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pageSlice(s.materials, page, limit)
}

func pageSlice[T any](rows []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	start := (page - 1) * limit
	if start >= len(rows) {
		return []T{}
	}
	end := start + limit
	if end > len(rows) {
		end = len(rows)
	}
	out := make([]T, end-start)
	copy(out, rows[start:end])
	return out
}
