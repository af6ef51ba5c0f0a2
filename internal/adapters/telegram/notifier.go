// Package telegram delivers circuit-breaker alerts via a Telegram bot.
package telegram

import (
	"context"
	"fmt"
	"time"

	"polytrader/internal/ports"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier sends breaker trip alerts to a configured chat. Delivery failures
// are logged and swallowed: an alert must never fail a trading cycle.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger ports.Logger
}

// Config holds configuration for the Telegram notifier.
type Config struct {
	Token  string
	ChatID int64
	Logger ports.Logger
}

// New creates a Telegram notifier. An empty token returns a nil Notifier,
// which is safe to use and sends nothing.
func New(cfg Config) (*Notifier, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Telegram notifier")
	}
	if cfg.Token == "" {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	cfg.Logger.Info(context.Background(), "Telegram notifier ready", map[string]interface{}{"bot": bot.Self.UserName})
	return &Notifier{bot: bot, chatID: cfg.ChatID, logger: cfg.Logger}, nil
}

// NotifyBreakerTripped sends a lockout alert for the strategy.
func (n *Notifier) NotifyBreakerTripped(ctx context.Context, event ports.BreakerEvent) {
	if n == nil || n.bot == nil {
		return
	}

	text := fmt.Sprintf(
		"🚨 Circuit breaker tripped\n\nStrategy: %s\nConsecutive losses: %d\nTotal loss: %.2f\nTrading locked until: %s",
		event.Strategy,
		event.ConsecutiveLosses,
		event.TotalLoss,
		event.BrokenUntil.Format(time.RFC1123),
	)

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		err = fmt.Errorf("%v: %w", err, ports.ErrNotificationFailed)
		n.logger.Error(ctx, err, "Failed to send breaker alert", map[string]interface{}{"strategy": event.Strategy})
	}
}

var _ ports.Notifier = (*Notifier)(nil)
