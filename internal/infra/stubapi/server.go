package stubapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"scrapmarket/internal/domain/catalog"
	"scrapmarket/internal/domain/chat"
	"scrapmarket/internal/infra/obs"
)

// Server bundles the stub marketplace REST surface and its push hub. The
// engine's end-to-end tests and the demo daemon run against it.
type Server struct {
	Store *Store
	Hub   *Hub
}

// NewServer wires routes into an http.Server ready to listen on addr.
func NewServer(addr, env string, obsMW obs.Middleware, health obs.HealthHandlers, s *Server) *http.Server {
	mode := configureGinMode(env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("stub api initialized", "mode", mode, "addr", addr)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-User-ID"},
		ExposeHeaders: []string{"Content-Length", "Content-Type", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if s.Hub != nil {
		router.GET("/push", s.Hub.Handle)
	}

	api := router.Group("/api/v1")
	api.GET("/chat", s.listChats)
	api.POST("/chat", s.createChat)
	api.GET("/chat/:id", s.getChat)
	api.GET("/chat/:id/messages", s.listMessages)
	api.POST("/chat/:id/messages", s.sendMessage)
	api.POST("/chat/:id/subscribe", s.subscribe)
	api.DELETE("/chat/:id/subscribe", s.unsubscribe)
	api.POST("/chat/:id/read", s.markRead)
	api.GET("/listings", s.listListings)
	api.GET("/users", s.listUsers)
	api.GET("/companies", s.listCompanies)
	api.GET("/materials", s.listMaterials)

	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func configureGinMode(env string) string {
	if env == "dev" || env == "local" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	return gin.Mode()
}

func (s *Server) listChats(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	page, limit := pageParams(c, 20)
	rows := s.Store.ListChats(user, page, limit)
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, renderChat(row))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createChat(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		CounterpartyID string `json:"counterparty_id"`
		ListingID      string `json:"listing_id"`
		Topic          string `json:"topic"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	counterparty := chat.UserID(strings.TrimSpace(req.CounterpartyID))
	if err := chat.NewChatRequest(user, counterparty); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, isNew := s.Store.CreateChat(user, counterparty, strings.TrimSpace(req.ListingID), req.Topic)
	if isNew && s.Hub != nil {
		s.Hub.BroadcastChatCreated(created.ID)
	}
	c.JSON(http.StatusCreated, renderChat(created))
}

func (s *Server) getChat(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	row, err := s.Store.GetChat(chat.ChatID(c.Param("id")))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	if !row.HasParticipant(user) {
		respondStoreError(c, ErrNotParticipant)
		return
	}
	c.JSON(http.StatusOK, renderChat(row))
}

func (s *Server) listMessages(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	page, limit := pageParams(c, 50)
	rows, err := s.Store.ListMessages(chat.ChatID(c.Param("id")), page, limit)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, renderMessage(row))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) sendMessage(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}
	msg, err := s.Store.AppendMessage(chat.ChatID(c.Param("id")), user, req.Content)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	if s.Hub != nil {
		s.Hub.BroadcastMessage(msg)
	}
	c.JSON(http.StatusCreated, renderMessage(msg))
}

func (s *Server) subscribe(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	token, ok := bindToken(c)
	if !ok {
		return
	}
	if err := s.Store.Subscribe(chat.ChatID(c.Param("id")), token); err != nil {
		respondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) unsubscribe(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	token, ok := bindToken(c)
	if !ok {
		return
	}
	if err := s.Store.Unsubscribe(chat.ChatID(c.Param("id")), token); err != nil {
		respondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) markRead(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	if err := s.Store.MarkRead(chat.ChatID(c.Param("id")), user); err != nil {
		respondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listListings(c *gin.Context) {
	page, limit := pageParams(c, 10)
	filters := catalog.ListingFilters{
		Query:      c.Query("q"),
		Category:   c.Query("category"),
		MaterialID: catalog.MaterialID(c.Query("material_id")),
		CompanyID:  catalog.CompanyID(c.Query("company_id")),
		Status:     catalog.ListingStatus(c.Query("status")),
	}
	if raw := c.Query("auction"); raw != "" {
		auction := raw == "true" || raw == "1"
		filters.Auction = &auction
	}
	rows := s.Store.ListListings(filters, page, limit)
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, renderListing(row))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listUsers(c *gin.Context) {
	page, limit := pageParams(c, 10)
	filters := catalog.UserFilters{
		Query:     c.Query("q"),
		CompanyID: catalog.CompanyID(c.Query("company_id")),
		Role:      c.Query("role"),
	}
	rows := s.Store.ListUsers(filters, page, limit)
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":         row.ID,
			"name":       row.Name,
			"email":      row.Email,
			"company_id": string(row.CompanyID),
			"role":       row.Role,
			"active":     row.Active,
			"created_at": renderTime(row.CreatedAt),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listCompanies(c *gin.Context) {
	page, limit := pageParams(c, 10)
	rows := s.Store.ListCompanies(page, limit)
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":         string(row.ID),
			"name":       row.Name,
			"country":    row.Country,
			"city":       row.City,
			"created_at": renderTime(row.CreatedAt),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listMaterials(c *gin.Context) {
	page, limit := pageParams(c, 10)
	rows := s.Store.ListMaterials(page, limit)
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":       string(row.ID),
			"name":     row.Name,
			"category": row.Category,
		})
	}
	c.JSON(http.StatusOK, out)
}

func requireUser(c *gin.Context) (chat.UserID, bool) {
	user := strings.TrimSpace(c.GetHeader("X-User-ID"))
	if user == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return chat.UserID(user), true
}

func bindToken(c *gin.Context) (string, bool) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return "", false
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return "", false
	}
	return token, true
}

func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrChatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat participant"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pageParams(c *gin.Context, defaultLimit int) (int, int) {
	return parsePositiveIntStrict(c.Query("page"), 1), parsePositiveIntStrict(c.Query("limit"), defaultLimit)
}

func parsePositiveIntStrict(raw string, def int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return def
	}
	return value
}

func renderChat(row chat.Chat) gin.H {
	participants := make([]string, 0, len(row.Participants))
	for _, p := range row.Participants {
		participants = append(participants, string(p))
	}
	out := gin.H{
		"id":           string(row.ID),
		"topic":        row.Topic,
		"status":       string(row.Status),
		"created_by":   string(row.CreatedBy),
		"participants": participants,
		"listing_id":   row.ListingID,
		"created_at":   renderTime(row.CreatedAt),
		"updated_at":   renderTime(row.UpdatedAt),
	}
	if row.LastMessage != nil {
		out["last_message"] = renderMessage(*row.LastMessage)
	}
	return out
}

func renderMessage(row chat.Message) gin.H {
	out := gin.H{
		"id":         string(row.ID),
		"chat_id":    string(row.ChatID),
		"sender_id":  string(row.SenderID),
		"content":    row.Content,
		"type":       string(row.Kind),
		"created_at": renderTime(row.CreatedAt),
	}
	if row.Attachment != nil {
		out["attachment"] = gin.H{
			"url":              row.Attachment.URL,
			"name":             row.Attachment.Name,
			"mime_type":        row.Attachment.MIMEType,
			"size_bytes":       row.Attachment.SizeBytes,
			"duration_seconds": row.Attachment.DurationSeconds,
		}
	}
	return out
}

func renderListing(row catalog.Listing) gin.H {
	return gin.H{
		"id":          string(row.ID),
		"title":       row.Title,
		"description": row.Description,
		"material_id": string(row.MaterialID),
		"category":    row.Category,
		"quantity":    row.Quantity,
		"unit":        row.Unit,
		"price_cents": row.PriceCents,
		"currency":    row.Currency,
		"seller_id":   row.SellerID,
		"company_id":  string(row.CompanyID),
		"status":      string(row.Status),
		"auction":     row.Auction,
		"created_at":  renderTime(row.CreatedAt),
		"updated_at":  renderTime(row.UpdatedAt),
	}
}

func renderTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339Nano)
}
