package stubapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapmarket/internal/infra/obs"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := &Server{Store: NewStore()}
	httpServer := NewServer("127.0.0.1:0", "test", obs.Middleware{}, obs.HealthHandlers{}, srv)
	server := httptest.NewServer(httpServer.Handler)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, server *httptest.Server, method, path, user string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestChatEndpointsRequireIdentity(t *testing.T) {
	server := newTestServer(t)
	resp := doJSON(t, server, http.MethodGet, "/api/v1/chat", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateSendAndListFlow(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, server, http.MethodPost, "/api/v1/chat", "alice", map[string]any{
		"counterparty_id": "bob",
		"listing_id":      "lst-1",
		"topic":           "PET bales",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID           string   `json:"id"`
		Participants []string `json:"participants"`
		Topic        string   `json:"topic"`
	}
	decodeBody(t, resp, &created)
	require.NotEmpty(t, created.ID)
	assert.ElementsMatch(t, []string{"alice", "bob"}, created.Participants)
	assert.Equal(t, "PET bales", created.Topic)

	resp = doJSON(t, server, http.MethodPost, "/api/v1/chat/"+created.ID+"/messages", "alice", map[string]any{
		"content": "still available?",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sent struct {
		ID        string `json:"id"`
		SenderID  string `json:"sender_id"`
		Content   string `json:"content"`
		CreatedAt string `json:"created_at"`
	}
	decodeBody(t, resp, &sent)
	assert.NotEmpty(t, sent.ID)
	assert.Equal(t, "alice", sent.SenderID)
	assert.NotEmpty(t, sent.CreatedAt)

	resp = doJSON(t, server, http.MethodGet, "/api/v1/chat/"+created.ID+"/messages", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var messages []struct {
		ID      string `json:"id"`
		Content string `json:"content"`
	}
	decodeBody(t, resp, &messages)
	require.Len(t, messages, 1)
	assert.Equal(t, sent.ID, messages[0].ID)

	// Bob sees the thread in his own list too.
	resp = doJSON(t, server, http.MethodGet, "/api/v1/chat", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var chats []struct {
		ID          string `json:"id"`
		LastMessage *struct {
			Content string `json:"content"`
		} `json:"last_message"`
	}
	decodeBody(t, resp, &chats)
	require.Len(t, chats, 1)
	require.NotNil(t, chats[0].LastMessage)
	assert.Equal(t, "still available?", chats[0].LastMessage.Content)
}

func TestCreateChatReusesExistingThread(t *testing.T) {
	server := newTestServer(t)
	body := map[string]any{"counterparty_id": "bob", "listing_id": "lst-1"}

	resp := doJSON(t, server, http.MethodPost, "/api/v1/chat", "alice", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var first struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &first)

	resp = doJSON(t, server, http.MethodPost, "/api/v1/chat", "alice", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var second struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &second)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateChatRejectsSelf(t *testing.T) {
	server := newTestServer(t)
	resp := doJSON(t, server, http.MethodPost, "/api/v1/chat", "alice", map[string]any{
		"counterparty_id": "alice",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOutsiderCannotPostToThread(t *testing.T) {
	server := newTestServer(t)
	resp := doJSON(t, server, http.MethodPost, "/api/v1/chat", "alice", map[string]any{
		"counterparty_id": "bob",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)

	resp = doJSON(t, server, http.MethodPost, "/api/v1/chat/"+created.ID+"/messages", "mallory", map[string]any{
		"content": "let me in",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var envelope struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &envelope)
	assert.Equal(t, "not a chat participant", envelope.Error)
}

func TestGetChatEnforcesMembership(t *testing.T) {
	server := newTestServer(t)
	resp := doJSON(t, server, http.MethodPost, "/api/v1/chat", "alice", map[string]any{
		"counterparty_id": "bob",
		"topic":           "HDPE regrind",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)

	resp = doJSON(t, server, http.MethodGet, "/api/v1/chat/"+created.ID, "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched struct {
		ID    string `json:"id"`
		Topic string `json:"topic"`
	}
	decodeBody(t, resp, &fetched)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "HDPE regrind", fetched.Topic)

	resp = doJSON(t, server, http.MethodGet, "/api/v1/chat/"+created.ID, "mallory", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, server, http.MethodGet, "/api/v1/chat/ghost", "alice", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnknownThreadIsNotFound(t *testing.T) {
	server := newTestServer(t)
	resp := doJSON(t, server, http.MethodGet, "/api/v1/chat/ghost/messages", "alice", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMessagePaginationOrderAndBounds(t *testing.T) {
	server := newTestServer(t)
	resp := doJSON(t, server, http.MethodPost, "/api/v1/chat", "alice", map[string]any{
		"counterparty_id": "bob",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)

	for i := 0; i < 5; i++ {
		resp = doJSON(t, server, http.MethodPost, "/api/v1/chat/"+created.ID+"/messages", "alice", map[string]any{
			"content": "note " + string(rune('a'+i)),
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	// Page 1 is the newest slice of history; higher pages walk back.
	resp = doJSON(t, server, http.MethodGet, "/api/v1/chat/"+created.ID+"/messages?page=1&limit=2", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page []struct {
		Content string `json:"content"`
	}
	decodeBody(t, resp, &page)
	require.Len(t, page, 2)
	assert.Equal(t, "note e", page[0].Content)
	assert.Equal(t, "note d", page[1].Content)

	resp = doJSON(t, server, http.MethodGet, "/api/v1/chat/"+created.ID+"/messages?page=2&limit=2", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page = nil
	decodeBody(t, resp, &page)
	require.Len(t, page, 2)
	assert.Equal(t, "note c", page[0].Content)
	assert.Equal(t, "note b", page[1].Content)

	resp = doJSON(t, server, http.MethodGet, "/api/v1/chat/"+created.ID+"/messages?page=4&limit=2", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page = nil
	decodeBody(t, resp, &page)
	assert.Empty(t, page)
}

func TestSubscribeValidatesToken(t *testing.T) {
	server := newTestServer(t)
	resp := doJSON(t, server, http.MethodPost, "/api/v1/chat", "alice", map[string]any{
		"counterparty_id": "bob",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)

	resp = doJSON(t, server, http.MethodPost, "/api/v1/chat/"+created.ID+"/subscribe", "alice", map[string]any{
		"token": "  ",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, server, http.MethodPost, "/api/v1/chat/"+created.ID+"/subscribe", "alice", map[string]any{
		"token": "device-1",
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, server, http.MethodDelete, "/api/v1/chat/"+created.ID+"/subscribe", "alice", map[string]any{
		"token": "device-1",
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	server := newTestServer(t)
	resp := doJSON(t, server, http.MethodGet, "/livez", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, server, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
