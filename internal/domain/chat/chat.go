package chat

import (
	"errors"
	"time"
)

var (
	ErrSelfChat             = errors.New("chat: cannot start chat with yourself")
	ErrCounterpartyRequired = errors.New("chat: counterparty id is required")
	ErrNotFound             = errors.New("chat: not found")
)

type ChatID string

// Status values observed from the backend. The field stays a free-form
// string; unknown values pass through untouched.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Chat is a conversation thread between two or more participants, optionally
// tied to a listing.
type Chat struct {
	ID           ChatID
	Topic        string
	Status       Status
	CreatedBy    UserID
	Participants []UserID
	ListingID    string
	LastMessage  *Message
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasParticipant reports whether the user belongs to the thread.
func (c Chat) HasParticipant(id UserID) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// Matches reports whether this thread is the existing conversation for the
// given (listing, counterparty) pair, the reuse check performed when a chat
// dialog opens.
func (c Chat) Matches(listingID string, counterparty UserID) bool {
	if listingID != "" && c.ListingID != listingID {
		return false
	}
	return c.HasParticipant(counterparty)
}

// NewChatRequest validates the preconditions for creating a thread before
// any network call is made.
func NewChatRequest(creator, counterparty UserID) error {
	if counterparty == "" {
		return ErrCounterpartyRequired
	}
	if creator == counterparty {
		return ErrSelfChat
	}
	return nil
}
