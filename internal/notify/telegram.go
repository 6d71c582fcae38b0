// Package notify pushes trading signals to Telegram. The notifier is
// optional: without a bot token it degrades to a disabled no-op so the
// rest of the pipeline never has to care.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"spotbot/internal/strategy"
)

// Telegram sends signal alerts to a single chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegram creates a notifier. An empty token or zero chat id returns
// (nil, nil): notifications are simply off.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	logger := log.With().Str("component", "notify").Logger()
	if token == "" || chatID == 0 {
		logger.Info().Msg("telegram notifications disabled")
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	logger.Info().Str("bot", bot.Self.UserName).Msg("telegram notifications enabled")
	return &Telegram{bot: bot, chatID: chatID, logger: logger}, nil
}

// NotifySignal sends one alert message. Delivery failures are logged and
// swallowed; a missed alert must never break the poller.
func (t *Telegram) NotifySignal(symbol string, sig strategy.Signal) {
	text := fmt.Sprintf("%s %s", sig.Kind, symbol)
	if sig.Price != nil && sig.RSI != nil {
		text = fmt.Sprintf("%s %s at %.2f (RSI %.1f)", sig.Kind, symbol, *sig.Price, *sig.RSI)
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error().Err(err).Str("symbol", symbol).Msg("failed to send telegram alert")
	}
}
