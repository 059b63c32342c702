package push

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig defines websocket push subscription settings.
type WSConfig struct {
	URL              string
	Key              string
	HandshakeTimeout time.Duration
}

// WSTransport receives push envelopes over a websocket subscription.
type WSTransport struct {
	conn   *websocket.Conn
	logger *slog.Logger
}

// DialPush opens the push subscription. Callers treat a dial failure as a
// capability absence, not an error: log it and run without push.
func DialPush(ctx context.Context, cfg WSConfig, logger *slog.Logger) (*WSTransport, error) {
	if cfg.URL == "" {
		return nil, errors.New("push: url required")
	}
	timeout := cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	header := http.Header{}
	if cfg.Key != "" {
		header.Set("X-Push-Key", cfg.Key)
	}
	conn, _, err := dialer.DialContext(ctx, cfg.URL, header)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("push channel connected", "url", cfg.URL)
	}
	return &WSTransport{conn: conn, logger: logger}, nil
}

// Receive blocks for the next payload. The bridge closes the transport when
// its context ends, which unblocks the read with an error.
func (t *WSTransport) Receive(ctx context.Context) ([]byte, error) {
	if t == nil || t.conn == nil {
		return nil, errors.New("push: transport not connected")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, payload, err := t.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return payload, nil
}

// Close shuts the subscription down.
func (t *WSTransport) Close() error {
	if t == nil || t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
