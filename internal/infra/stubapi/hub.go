package stubapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"scrapmarket/internal/domain/chat"
)

// Hub fans push envelopes out to connected websocket subscribers, playing
// the role of the browser push service in front of the engine's bridge.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	logger  *slog.Logger
}

// NewHub builds an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handle upgrades a connection and keeps it registered until it drops.
func (h *Hub) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log("push upgrade failed", "error", err)
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// Drain reads so close frames are processed; the hub only writes.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// BroadcastChatCreated announces a new thread.
func (h *Hub) BroadcastChatCreated(id chat.ChatID) {
	h.broadcast(map[string]any{
		"notification": map[string]any{"title": "New chat"},
		"data": map[string]any{
			"type":   "chat_created",
			"chatId": string(id),
		},
	})
}

// BroadcastMessage announces a confirmed message, with the message payload
// JSON-encoded as a string inside the data block, matching the push
// provider's envelope.
func (h *Hub) BroadcastMessage(msg chat.Message) {
	nested, err := json.Marshal(renderMessage(msg))
	if err != nil {
		h.log("push message encode failed", "error", err)
		return
	}
	h.broadcast(map[string]any{
		"notification": map[string]any{"title": "New message"},
		"data": map[string]any{
			"type":    "chat_message",
			"chatId":  string(msg.ChatID),
			"message": string(nested),
		},
	})
}

func (h *Hub) broadcast(envelope map[string]any) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		h.log("push envelope encode failed", "error", err)
		return
	}
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(conn)
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

func (h *Hub) log(msg string, attrs ...any) {
	if h.logger != nil {
		h.logger.Warn(msg, attrs...)
	}
}
