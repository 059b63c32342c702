package notify

import (
	"errors"
	"log/slog"
	"strings"

	"scrapmarket/internal/domain/chat"
)

// Level of a user-facing notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// GenericErrorKey is the fallback translation key when no mapping matches.
// Raw backend error text is never shown to the user.
const GenericErrorKey = "error.generic"

// Notifier displays a transient localized notice. The UI shell supplies the
// real implementation; the engine only ever emits translation keys.
type Notifier interface {
	Notify(level Level, key string)
}

// substringKeys maps known backend error fragments to translation keys,
// best effort and checked in order.
var substringKeys = []struct {
	fragment string
	key      string
}{
	{"cannot start chat with yourself", "chat.error.self_chat"},
	{"counterparty id is required", "chat.error.missing_counterparty"},
	{"not a chat participant", "chat.error.not_participant"},
	{"message content is required", "chat.error.empty_message"},
	{"not found", "error.not_found"},
	{"forbidden", "error.forbidden"},
	{"unauthorized", "error.unauthorized"},
	{"deadline exceeded", "error.timeout"},
	{"timeout", "error.timeout"},
	{"connection refused", "error.network"},
	{"service unavailable", "error.unavailable"},
}

// MessageKey maps an error to a translation key. Domain sentinel errors map
// directly; anything else goes through the substring table and falls back to
// the generic key.
func MessageKey(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, chat.ErrSelfChat):
		return "chat.error.self_chat"
	case errors.Is(err, chat.ErrCounterpartyRequired):
		return "chat.error.missing_counterparty"
	case errors.Is(err, chat.ErrContentRequired):
		return "chat.error.empty_message"
	case errors.Is(err, chat.ErrNotFound):
		return "error.not_found"
	}
	text := strings.ToLower(err.Error())
	for _, entry := range substringKeys {
		if strings.Contains(text, entry.fragment) {
			return entry.key
		}
	}
	return GenericErrorKey
}

// LogNotifier writes notices to the structured log. Used by the headless
// daemon where no UI exists.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(level Level, key string) {
	if n.Logger == nil {
		return
	}
	switch level {
	case LevelError:
		n.Logger.Error("notice", "key", key)
	case LevelWarning:
		n.Logger.Warn("notice", "key", key)
	default:
		n.Logger.Info("notice", "key", key)
	}
}
