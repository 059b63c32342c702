package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"scrapmarket/internal/app/chatlist"
	"scrapmarket/internal/app/chatsync"
	"scrapmarket/internal/app/notify"
	"scrapmarket/internal/app/pager"
	"scrapmarket/internal/app/store"
	"scrapmarket/internal/domain/catalog"
	"scrapmarket/internal/infra/api"
	"scrapmarket/internal/infra/config"
	"scrapmarket/internal/infra/obs"
	"scrapmarket/internal/infra/push"
	"scrapmarket/internal/infra/stubapi"
)

const demoUser = "demo-buyer"
const demoSeller = "demo-seller"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	if cfg.StubEnabled {
		if err := startStub(ctx, cfg, logger); err != nil {
			logger.Error("stub api failed to start", "error", err)
			os.Exit(1)
		}
	}

	client, err := api.NewClient(api.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.APITimeout,
		UserID:  demoUser,
	}, logger)
	if err != nil {
		logger.Error("api client init failed", "error", err)
		os.Exit(1)
	}

	st := store.New(logger)
	service := chatlist.NewService(client, st, demoUser, cfg.ChatPageSize, logger)
	notifier := notify.LogNotifier{Logger: logger}

	bridge := &push.Bridge{
		Logger:        logger,
		OnChatCreated: service.HandleChatCreated,
		OnChatMessage: service.HandleChatMessage,
	}
	if pushURL := resolvePushURL(cfg); pushURL != "" {
		transport, err := push.DialPush(ctx, push.WSConfig{URL: pushURL, Key: cfg.PushKey}, logger)
		if err != nil {
			// Capability absence: keep running over REST alone.
			logger.Info("push unavailable, continuing REST-only", "error", err)
		} else {
			bridge.Transport = transport
		}
	}
	go func() {
		if err := bridge.Run(ctx); err != nil {
			logger.Warn("push bridge stopped", "error", err)
		}
	}()

	if err := service.Refresh(ctx); err != nil {
		notifier.Notify(notify.LevelError, notify.MessageKey(err))
	}

	runDemo(ctx, cfg, client, service, notifier, logger)

	<-ctx.Done()
	logger.Info("shutting down")
}

// runDemo exercises the engine against the configured backend: browse the
// listings catalog, open a chat about the first listing and send a message.
func runDemo(ctx context.Context, cfg config.Config, client *api.Client, service *chatlist.Service, notifier notify.LogNotifier, logger *slog.Logger) {
	listings := pager.NewCursor(func(ctx context.Context, page, limit int) ([]catalog.Listing, error) {
		return client.ListListings(ctx, catalog.ListingFilters{}, page, limit)
	}, cfg.CatalogPageSize, func(l catalog.Listing) string { return string(l.ID) })

	if err := listings.Reset(ctx); err != nil {
		notifier.Notify(notify.LevelError, notify.MessageKey(err))
		return
	}
	for listings.HasMore() {
		if err := listings.Advance(ctx); err != nil {
			notifier.Notify(notify.LevelWarning, notify.MessageKey(err))
			break
		}
	}
	logger.Info("catalog loaded", "listings", listings.Len())

	rows := listings.Items()
	opts := chatsync.OpenOptions{
		Counterparty: demoSeller,
		PageSize:     cfg.ChatPageSize,
		DeviceToken:  "demo-device",
	}
	if len(rows) > 0 {
		opts.ListingID = string(rows[0].ID)
		opts.Topic = rows[0].Title
	}
	session, err := service.OpenChat(ctx, opts)
	if err != nil {
		notifier.Notify(notify.LevelError, notify.MessageKey(err))
		return
	}
	defer service.CloseChat(ctx)

	if err := session.Send(ctx, "Hello! Is this batch still available?"); err != nil {
		notifier.Notify(notify.LevelError, notify.MessageKey(err))
	}
	for _, msg := range session.Messages() {
		logger.Info("message",
			"sender", msg.SenderID,
			"content", msg.Content,
			"pending", msg.Pending,
			"at", msg.CreatedAt,
		)
	}
	logger.Info("chat session ready", "chat_id", session.Chat().ID, "state", session.State())
}

// startStub runs the in-process marketplace stub and waits for it to accept
// requests.
func startStub(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	st := stubapi.NewStore()
	st.SeedCatalog(seedListings(), seedUsers(), seedCompanies(), seedMaterials())
	hub := stubapi.NewHub(logger)
	server := stubapi.NewServer(cfg.StubAddr, cfg.Env, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: func() error { return nil },
	}, &stubapi.Server{Store: st, Hub: hub})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("stub shutdown failed", "error", err)
		}
	}()
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("stub api failed", "error", err)
		}
	}()
	return waitReady(ctx, healthURL(cfg.APIBaseURL))
}

func waitReady(ctx context.Context, url string) error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		response, err := http.DefaultClient.Do(request)
		if err == nil {
			response.Body.Close()
			if response.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("stub api not ready at %s", url)
}

func healthURL(apiBase string) string {
	base := strings.TrimSuffix(strings.TrimRight(apiBase, "/"), "/api/v1")
	return base + "/livez"
}

// resolvePushURL derives the websocket push endpoint from the API base when
// not configured explicitly.
func resolvePushURL(cfg config.Config) string {
	if cfg.PushURL != "" {
		return cfg.PushURL
	}
	base := strings.TrimSuffix(strings.TrimRight(cfg.APIBaseURL, "/"), "/api/v1")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/push"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/push"
	}
	return ""
}

func seedListings() []catalog.Listing {
	now := time.Now().UTC()
	return []catalog.Listing{
		{
			ID: "lst-1", Title: "Baled PET bottles, clear", MaterialID: "mat-pet",
			Category: "plastics", Quantity: 12, Unit: "t", PriceCents: 240_00,
			Currency: "EUR", SellerID: demoSeller, CompanyID: "co-1",
			Status: catalog.ListingActive, CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: "lst-2", Title: "Shredded HDPE, mixed colour", MaterialID: "mat-hdpe",
			Category: "plastics", Quantity: 8, Unit: "t", PriceCents: 310_00,
			Currency: "EUR", SellerID: demoSeller, CompanyID: "co-1",
			Status: catalog.ListingActive, Auction: true, CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: "lst-3", Title: "Aluminium cans, loose", MaterialID: "mat-alu",
			Category: "metals", Quantity: 4.5, Unit: "t", PriceCents: 980_00,
			Currency: "EUR", SellerID: "seller-2", CompanyID: "co-2",
			Status: catalog.ListingActive, CreatedAt: now, UpdatedAt: now,
		},
	}
}

func seedUsers() []catalog.User {
	now := time.Now().UTC()
	return []catalog.User{
		{ID: demoUser, Name: "Demo Buyer", Role: "buyer", Active: true, CreatedAt: now},
		{ID: demoSeller, Name: "Demo Seller", CompanyID: "co-1", Role: "seller", Active: true, CreatedAt: now},
		{ID: "seller-2", Name: "Second Seller", CompanyID: "co-2", Role: "seller", Active: true, CreatedAt: now},
	}
}

func seedCompanies() []catalog.Company {
	now := time.Now().UTC()
	return []catalog.Company{
		{ID: "co-1", Name: "GreenLoop Recycling", Country: "NL", City: "Rotterdam", CreatedAt: now},
		{ID: "co-2", Name: "Metallum Trade", Country: "DE", City: "Hamburg", CreatedAt: now},
	}
}

func seedMaterials() []catalog.Material {
	return []catalog.Material{
		{ID: "mat-pet", Name: "PET", Category: "plastics"},
		{ID: "mat-hdpe", Name: "HDPE", Category: "plastics"},
		{ID: "mat-alu", Name: "Aluminium", Category: "metals"},
	}
}
