// Package notify sends operator notifications about ingested content.
// Delivery is fire-and-forget: failures are logged and never affect
// scheduling decisions.
package notify

import (
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"atlas/internal/model"
)

// Notifier delivers a plain-text message somewhere an operator can see it.
type Notifier interface {
	Notify(text string)
}

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends messages to a fixed chat via the Telegram bot API.
type Telegram struct {
	api    telegramAPI
	chatID int64
	log    *slog.Logger
}

// NewTelegram creates a Telegram notifier with the given bot token and
// destination chat.
func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Telegram{api: api, chatID: chatID, log: log}, nil
}

// Notify sends text to the configured chat. Errors are logged, not returned.
func (t *Telegram) Notify(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error("send notification", "error", err)
	}
}

// Discard is a Notifier that drops every message, used when no notification
// channel is configured.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(string) {}

// FormatAccepted formats a notification for a newly stored content item.
func FormatAccepted(item model.ContentItem, score float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]\n\n", item.SourceName)
	b.WriteString(item.Title)
	fmt.Fprintf(&b, "\n\nScore: %.2f", score)
	if item.URL != "" {
		b.WriteString("\n\n")
		b.WriteString(item.URL)
	}
	return b.String()
}

// FormatSummary formats an accepted/rejected tally for periodic digests.
func FormatSummary(accepted, rejected int) string {
	return fmt.Sprintf("Quality summary: %d accepted, %d rejected", accepted, rejected)
}
