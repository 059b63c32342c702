package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config defines REST client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// UserID identifies the acting user to the backend.
	UserID string
}

// Client wraps the marketplace REST API consumed by the sync engine.
type Client struct {
	baseURL string
	userID  string
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// APIError is the result shape for non-2xx responses. Transport and server
// failures are converted into this at the call site instead of leaking raw
// response bodies upward.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// NewClient builds a REST client for the given base URL.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api: base url required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: base,
		userID:  cfg.UserID,
		http:    &http.Client{},
		timeout: timeout,
		logger:  logger,
	}, nil
}

// UserID returns the acting user's id.
func (c *Client) UserID() string {
	return c.userID
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	callCtx, cancel := c.wrapCall(ctx)
	defer cancel()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	request, err := http.NewRequestWithContext(callCtx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.userID != "" {
		request.Header.Set("X-User-ID", c.userID)
	}

	response, err := c.http.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return c.decodeError(response)
	}
	if out == nil {
		io.Copy(io.Discard, response.Body)
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) decodeError(response *http.Response) error {
	apiErr := &APIError{Status: response.StatusCode}
	var envelope struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(io.LimitReader(response.Body, 4096))
	if err == nil && json.Unmarshal(data, &envelope) == nil {
		apiErr.Message = envelope.Error
	}
	if c.logger != nil {
		c.logger.Debug("api error response", "status", response.StatusCode, "message", apiErr.Message)
	}
	return apiErr
}

func (c *Client) wrapCall(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := c.timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func pageQuery(page, limit int) url.Values {
	query := url.Values{}
	query.Set("page", fmt.Sprint(page))
	query.Set("limit", fmt.Sprint(limit))
	return query
}

// parseTime parses an ISO timestamp leniently: malformed or missing values
// become the zero time, which the reconciler orders as epoch 0 instead of
// failing the whole payload.
func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}
