package push

import (
	"context"
	"errors"
	"log/slog"

	"scrapmarket/internal/domain/chat"
)

// Transport delivers raw push payloads. A nil transport means the push
// channel is unavailable on this client; the bridge then degrades silently
// and the app keeps working over REST alone.
type Transport interface {
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Bridge connects the push channel to the engine: "chat created" events
// trigger a silent chat-list refresh, "new message" events are fed as
// candidate confirmed messages into the same reconcile pipeline REST uses.
// The bridge never mutates state directly.
type Bridge struct {
	Transport Transport
	Logger    *slog.Logger

	// OnChatCreated is invoked with the new thread's id. The handler
	// refreshes the chat list in the background and marks the badge.
	OnChatCreated func(chat.ChatID)
	// OnChatMessage supplies a confirmed message candidate to the open
	// session's reconciler.
	OnChatMessage func(chat.ChatID, chat.Message)
}

// Run consumes the transport until the context is cancelled. Malformed
// payloads are dropped with a logged diagnostic; a missing or failed
// transport ends the loop without surfacing an error to the user.
func (b *Bridge) Run(ctx context.Context) error {
	if b.Transport == nil {
		b.logDebug("push transport unavailable, running REST-only")
		return nil
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		b.Transport.Close()
	}()
	for {
		payload, err := b.Transport.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			b.logWarn("push transport closed", "error", err)
			return nil
		}
		b.dispatch(payload)
	}
}

func (b *Bridge) dispatch(payload []byte) {
	event, err := DecodeEnvelope(payload)
	if err != nil {
		b.logDebug("dropping malformed push payload", "error", err)
		return
	}
	switch event.Type {
	case EventChatCreated:
		if b.OnChatCreated != nil {
			b.OnChatCreated(event.ChatID)
		}
	case EventChatMessage:
		if b.OnChatMessage != nil && event.Message != nil {
			b.OnChatMessage(event.ChatID, *event.Message)
		}
	}
}

func (b *Bridge) logDebug(msg string, attrs ...any) {
	if b.Logger != nil {
		b.Logger.Debug(msg, attrs...)
	}
}

func (b *Bridge) logWarn(msg string, attrs ...any) {
	if b.Logger != nil {
		b.Logger.Warn(msg, attrs...)
	}
}
