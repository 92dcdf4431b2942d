package notify

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxTelegramMessage = 4096

// Telegram sends replay notifications through a Telegram bot. It is
// send-only: the bot never polls for updates.
type Telegram struct {
	bot *tgbotapi.BotAPI
}

// NewTelegram creates a Telegram notifier from a bot token.
func NewTelegram(token string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Telegram{bot: bot}, nil
}

// Handler returns a registry handler for "telegram:<chatID>" targets.
func (t *Telegram) Handler() Handler {
	return func(target, message string) error {
		raw := strings.TrimPrefix(target, "telegram:")
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid telegram chat id %q: %w", raw, err)
		}
		t.send(chatID, message)
		return nil
	}
}

func (t *Telegram) send(chatID int64, text string) {
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = "Markdown"
		if _, err := t.bot.Send(msg); err != nil {
			// Retry without markdown if it fails
			msg.ParseMode = ""
			if _, err := t.bot.Send(msg); err != nil {
				slog.Error("telegram send failed", "chat_id", chatID, "error", err)
			}
		}
	}
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
