package chatlist_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapmarket/internal/app/chatlist"
	"scrapmarket/internal/app/chatsync"
	"scrapmarket/internal/app/store"
	"scrapmarket/internal/domain/chat"
	"scrapmarket/internal/infra/api"
	"scrapmarket/internal/infra/obs"
	"scrapmarket/internal/infra/push"
	"scrapmarket/internal/infra/stubapi"
)

type harness struct {
	server *httptest.Server
	alice  *api.Client
	bob    *api.Client
	store  *store.Store
	svc    *chatlist.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := &stubapi.Server{Store: stubapi.NewStore(), Hub: stubapi.NewHub(nil)}
	httpServer := stubapi.NewServer("127.0.0.1:0", "test", obs.Middleware{}, obs.HealthHandlers{}, backend)
	server := httptest.NewServer(httpServer.Handler)
	t.Cleanup(server.Close)

	newClient := func(user string) *api.Client {
		client, err := api.NewClient(api.Config{
			BaseURL: server.URL + "/api/v1",
			Timeout: 2 * time.Second,
			UserID:  user,
		}, nil)
		require.NoError(t, err)
		return client
	}

	st := store.New(nil)
	alice := newClient("alice")
	return &harness{
		server: server,
		alice:  alice,
		bob:    newClient("bob"),
		store:  st,
		svc:    chatlist.NewService(alice, st, "alice", 20, nil),
	}
}

// startPush connects alice's push bridge to the stub hub over websocket.
func (h *harness) startPush(t *testing.T) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/push"
	transport, err := push.DialPush(context.Background(), push.WSConfig{URL: wsURL}, nil)
	require.NoError(t, err)

	bridge := &push.Bridge{
		Transport:     transport,
		OnChatCreated: h.svc.HandleChatCreated,
		OnChatMessage: h.svc.HandleChatMessage,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		bridge.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestConversationOverRESTAndPush(t *testing.T) {
	h := newHarness(t)
	h.startPush(t)
	ctx := context.Background()

	require.NoError(t, h.svc.Refresh(ctx))
	assert.Empty(t, h.store.Snapshot().Chats)

	session, err := h.svc.OpenChat(ctx, chatsync.OpenOptions{
		Counterparty: "bob",
		ListingID:    "lst-1",
		Topic:        "PET bales",
	})
	require.NoError(t, err)
	threadID := session.Chat().ID
	assert.Equal(t, threadID, h.store.Snapshot().OpenChatID)

	require.NoError(t, session.Send(ctx, "still available?"))
	messages := session.Messages()
	require.Len(t, messages, 1)
	assert.False(t, messages[0].Pending)
	assert.Equal(t, "still available?", messages[0].Content)

	// Bob replies out of band; the push bridge feeds it into the open
	// session's reconciler.
	_, err = h.bob.SendMessage(ctx, threadID, "yes, 20 tonnes left")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(session.Messages()) == 2
	}, 2*time.Second, 10*time.Millisecond, "push reply never reached the session")
	messages = session.Messages()
	assert.Equal(t, "yes, 20 tonnes left", messages[1].Content)
	assert.Equal(t, chat.UserID("bob"), messages[1].SenderID)

	// Alice's own send may also bounce back over push; the id dedup keeps
	// the list at two entries.
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, session.Messages(), 2)
}

func TestPushMessageForClosedThreadFlagsUnread(t *testing.T) {
	h := newHarness(t)
	h.startPush(t)
	ctx := context.Background()

	session, err := h.svc.OpenChat(ctx, chatsync.OpenOptions{Counterparty: "bob"})
	require.NoError(t, err)
	threadID := session.Chat().ID
	h.svc.CloseChat(ctx)
	assert.Equal(t, chat.ChatID(""), h.store.Snapshot().OpenChatID)

	_, err = h.bob.SendMessage(ctx, threadID, "ping")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return h.store.Snapshot().Unread[threadID]
	}, 2*time.Second, 10*time.Millisecond, "unread badge never set")
}

func TestPushChatCreatedRefreshesListSilently(t *testing.T) {
	h := newHarness(t)
	h.startPush(t)
	ctx := context.Background()

	require.NoError(t, h.svc.Refresh(ctx))

	created, err := h.bob.CreateChat(ctx, "alice", "lst-9", "aluminium offcuts")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snapshot := h.store.Snapshot()
		if !snapshot.New[created.ID] {
			return false
		}
		for _, c := range snapshot.Chats {
			if c.ID == created.ID {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond, "created thread never showed up")
}

func TestOpenChatReusesServerThread(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.svc.OpenChat(ctx, chatsync.OpenOptions{Counterparty: "bob", ListingID: "lst-1"})
	require.NoError(t, err)
	require.NoError(t, first.Send(ctx, "first contact"))
	h.svc.CloseChat(ctx)

	second, err := h.svc.OpenChat(ctx, chatsync.OpenOptions{Counterparty: "bob", ListingID: "lst-1"})
	require.NoError(t, err)
	assert.Equal(t, first.Chat().ID, second.Chat().ID)
	messages := second.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "first contact", messages[0].Content)
}

func TestLoadMoreChatsPaginates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Bob opens 25 threads with alice; her first page holds 20.
	for i := 0; i < 25; i++ {
		_, err := h.bob.CreateChat(ctx, "alice", "lst-"+string(rune('a'+i)), "")
		require.NoError(t, err)
	}

	require.NoError(t, h.svc.Refresh(ctx))
	assert.Len(t, h.store.Snapshot().Chats, 20)
	require.True(t, h.svc.HasMore())

	require.NoError(t, h.svc.LoadMore(ctx))
	assert.Len(t, h.store.Snapshot().Chats, 25)
}

func TestSendFailureSurfacesWithoutBreakingSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	session, err := h.svc.OpenChat(ctx, chatsync.OpenOptions{Counterparty: "bob"})
	require.NoError(t, err)

	// Blank content is rejected client-side before any request.
	require.Error(t, session.Send(ctx, "   "))
	assert.Empty(t, session.Messages())

	require.NoError(t, session.Send(ctx, "recovered"))
	require.Len(t, session.Messages(), 1)
}
