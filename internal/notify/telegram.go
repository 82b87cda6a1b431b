package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// TelegramSender posts Markdown reports to one chat
type TelegramSender struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	limiter *rate.Limiter
}

// NewTelegramSender connects to the Bot API. minInterval spaces consecutive
// messages to stay under the chat's flood limit.
func NewTelegramSender(token string, chatID int64, minInterval time.Duration) (*TelegramSender, error) {
	return NewTelegramSenderWithClient(token, tgbotapi.APIEndpoint, http.DefaultClient, chatID, minInterval)
}

// NewTelegramSenderWithClient is NewTelegramSender against a custom endpoint,
// e.g. "https://api.telegram.org/bot%s/%s".
func NewTelegramSenderWithClient(token, endpoint string, client tgbotapi.HTTPClient, chatID int64, minInterval time.Duration) (*TelegramSender, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}

	log.Info().Str("username", api.Self.UserName).Int64("chat_id", chatID).Msg("🤖 Telegram bot initialized")

	return &TelegramSender{
		api:     api,
		chatID:  chatID,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// Send posts text with Markdown parse mode
func (t *TelegramSender) Send(ctx context.Context, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	return nil
}

func (t *TelegramSender) Name() string { return "telegram" }
