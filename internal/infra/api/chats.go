package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"scrapmarket/internal/domain/chat"
)

// Wire shapes for the chat endpoints.

type chatDTO struct {
	ID           string      `json:"id"`
	Topic        string      `json:"topic,omitempty"`
	Status       string      `json:"status,omitempty"`
	CreatedBy    string      `json:"created_by,omitempty"`
	Participants []string    `json:"participants"`
	ListingID    string      `json:"listing_id,omitempty"`
	LastMessage  *messageDTO `json:"last_message,omitempty"`
	CreatedAt    string      `json:"created_at,omitempty"`
	UpdatedAt    string      `json:"updated_at,omitempty"`
}

type messageDTO struct {
	ID         string         `json:"id"`
	ChatID     string         `json:"chat_id"`
	SenderID   string         `json:"sender_id"`
	Content    string         `json:"content"`
	Type       string         `json:"type,omitempty"`
	Attachment *attachmentDTO `json:"attachment,omitempty"`
	CreatedAt  string         `json:"created_at,omitempty"`
}

type attachmentDTO struct {
	URL             string  `json:"url"`
	Name            string  `json:"name,omitempty"`
	MIMEType        string  `json:"mime_type,omitempty"`
	SizeBytes       int64   `json:"size_bytes,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// ListChats returns one page of the user's chat threads.
func (c *Client) ListChats(ctx context.Context, page, limit int) ([]chat.Chat, error) {
	var rows []chatDTO
	if err := c.do(ctx, http.MethodGet, "/chat", pageQuery(page, limit), nil, &rows); err != nil {
		return nil, err
	}
	items := make([]chat.Chat, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapChat(row))
	}
	return items, nil
}

// CreateChat starts a thread with a counterparty, optionally tied to a
// listing.
func (c *Client) CreateChat(ctx context.Context, counterparty chat.UserID, listingID, topic string) (chat.Chat, error) {
	body := struct {
		CounterpartyID string `json:"counterparty_id"`
		ListingID      string `json:"listing_id,omitempty"`
		Topic          string `json:"topic,omitempty"`
	}{
		CounterpartyID: string(counterparty),
		ListingID:      listingID,
		Topic:          strings.TrimSpace(topic),
	}
	var row chatDTO
	if err := c.do(ctx, http.MethodPost, "/chat", nil, body, &row); err != nil {
		return chat.Chat{}, err
	}
	return mapChat(row), nil
}

// ListMessages returns one page of a thread's history.
func (c *Client) ListMessages(ctx context.Context, id chat.ChatID, page, limit int) ([]chat.Message, error) {
	var rows []messageDTO
	path := fmt.Sprintf("/chat/%s/messages", id)
	if err := c.do(ctx, http.MethodGet, path, pageQuery(page, limit), nil, &rows); err != nil {
		return nil, err
	}
	items := make([]chat.Message, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapMessage(row))
	}
	return items, nil
}

// SendMessage posts a text message to a thread.
func (c *Client) SendMessage(ctx context.Context, id chat.ChatID, content string) (chat.Message, error) {
	body := struct {
		Content string `json:"content"`
	}{Content: strings.TrimSpace(content)}
	var row messageDTO
	path := fmt.Sprintf("/chat/%s/messages", id)
	if err := c.do(ctx, http.MethodPost, path, nil, body, &row); err != nil {
		return chat.Message{}, err
	}
	return mapMessage(row), nil
}

// Subscribe registers a push device token for a thread.
func (c *Client) Subscribe(ctx context.Context, id chat.ChatID, deviceToken string) error {
	body := struct {
		Token string `json:"token"`
	}{Token: deviceToken}
	path := fmt.Sprintf("/chat/%s/subscribe", id)
	return c.do(ctx, http.MethodPost, path, nil, body, nil)
}

// Unsubscribe removes a push device token from a thread.
func (c *Client) Unsubscribe(ctx context.Context, id chat.ChatID, deviceToken string) error {
	body := struct {
		Token string `json:"token"`
	}{Token: deviceToken}
	path := fmt.Sprintf("/chat/%s/subscribe", id)
	return c.do(ctx, http.MethodDelete, path, nil, body, nil)
}

// MarkRead clears the unread marker server-side, best effort.
func (c *Client) MarkRead(ctx context.Context, id chat.ChatID) error {
	path := fmt.Sprintf("/chat/%s/read", id)
	return c.do(ctx, http.MethodPost, path, nil, nil, nil)
}

func mapChat(row chatDTO) chat.Chat {
	out := chat.Chat{
		ID:           chat.ChatID(row.ID),
		Topic:        row.Topic,
		Status:       chat.Status(row.Status),
		CreatedBy:    chat.UserID(row.CreatedBy),
		Participants: make([]chat.UserID, 0, len(row.Participants)),
		ListingID:    row.ListingID,
		CreatedAt:    parseTime(row.CreatedAt),
		UpdatedAt:    parseTime(row.UpdatedAt),
	}
	for _, p := range row.Participants {
		out.Participants = append(out.Participants, chat.UserID(p))
	}
	if row.LastMessage != nil {
		last := mapMessage(*row.LastMessage)
		out.LastMessage = &last
	}
	return out
}

func mapMessage(row messageDTO) chat.Message {
	kind := chat.MessageKind(row.Type)
	if kind == "" {
		kind = chat.KindText
	}
	out := chat.Message{
		ID:        chat.MessageID(row.ID),
		ChatID:    chat.ChatID(row.ChatID),
		SenderID:  chat.UserID(row.SenderID),
		Content:   row.Content,
		Kind:      kind,
		CreatedAt: parseTime(row.CreatedAt),
	}
	if row.Attachment != nil {
		out.Attachment = &chat.Attachment{
			URL:             row.Attachment.URL,
			Name:            row.Attachment.Name,
			MIMEType:        row.Attachment.MIMEType,
			SizeBytes:       row.Attachment.SizeBytes,
			DurationSeconds: row.Attachment.DurationSeconds,
		}
	}
	return out
}
