package push

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapmarket/internal/domain/chat"
)

func wrapEnvelope(t *testing.T, eventType, chatID string, message any) []byte {
	t.Helper()
	data := map[string]any{"type": eventType, "chatId": chatID}
	if message != nil {
		nested, err := json.Marshal(message)
		require.NoError(t, err)
		data["message"] = string(nested)
	}
	payload, err := json.Marshal(map[string]any{
		"notification": map[string]any{"title": "New message"},
		"data":         data,
	})
	require.NoError(t, err)
	return payload
}

func TestDecodeChatMessageEnvelope(t *testing.T) {
	payload := wrapEnvelope(t, "chat_message", "thread-1", map[string]any{
		"id":         "srv-1",
		"chat_id":    "thread-1",
		"sender_id":  "bob",
		"content":    "hello",
		"type":       "text",
		"created_at": "2024-01-01T00:00:01Z",
	})

	event, err := DecodeEnvelope(payload)
	require.NoError(t, err)
	assert.Equal(t, EventChatMessage, event.Type)
	assert.Equal(t, chat.ChatID("thread-1"), event.ChatID)
	require.NotNil(t, event.Message)
	assert.Equal(t, chat.MessageID("srv-1"), event.Message.ID)
	assert.Equal(t, chat.UserID("bob"), event.Message.SenderID)
	assert.Equal(t, chat.KindText, event.Message.Kind)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC), event.Message.CreatedAt)
}

func TestDecodeChatCreatedEnvelope(t *testing.T) {
	event, err := DecodeEnvelope(wrapEnvelope(t, "chat_created", "thread-2", nil))
	require.NoError(t, err)
	assert.Equal(t, EventChatCreated, event.Type)
	assert.Equal(t, chat.ChatID("thread-2"), event.ChatID)
	assert.Nil(t, event.Message)
}

func TestDecodeDefaultsKindAndToleratesBadTimestamp(t *testing.T) {
	payload := wrapEnvelope(t, "chat_message", "thread-1", map[string]any{
		"id":         "srv-2",
		"sender_id":  "bob",
		"content":    "untyped",
		"created_at": "not-a-timestamp",
	})

	event, err := DecodeEnvelope(payload)
	require.NoError(t, err)
	assert.Equal(t, chat.KindText, event.Message.Kind)
	assert.True(t, event.Message.CreatedAt.IsZero(), "unparsable timestamps become zero, ordered as epoch 0")
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	cases := map[string][]byte{
		"not json":       []byte("{nope"),
		"missing chatId": wrapEnvelope(t, "chat_message", "", nil),
		"unknown type":   wrapEnvelope(t, "mystery", "thread-1", nil),
		"missing nested": wrapEnvelope(t, "chat_message", "thread-1", nil),
		"missing sender": wrapEnvelope(t, "chat_message", "thread-1", map[string]any{"id": "srv-1", "content": "x"}),
		"missing id":     wrapEnvelope(t, "chat_message", "thread-1", map[string]any{"sender_id": "bob", "content": "x"}),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeEnvelope(payload)
			assert.Error(t, err)
		})
	}
}

func TestDecodeNestedMessageMustBeJSON(t *testing.T) {
	payload, err := json.Marshal(map[string]any{
		"data": map[string]any{
			"type":    "chat_message",
			"chatId":  "thread-1",
			"message": "plain text, not json",
		},
	})
	require.NoError(t, err)
	_, err = DecodeEnvelope(payload)
	assert.Error(t, err)
}
