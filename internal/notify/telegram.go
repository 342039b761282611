package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"price_tracker/internal/domain"
)

// Telegram pushes alerts straight to a chat. Optional companion to the
// queue-based mailer for people who want the ping immediately.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

func NewTelegram(token string, chatID int64, logger *slog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}

	logger.Info("telegram notifier ready", "bot", bot.Self.UserName, "chat_id", chatID)

	return &Telegram{bot: bot, chatID: chatID, logger: logger}, nil
}

func (t *Telegram) Notify(ctx context.Context, alert *domain.AlertRequest) error {
	text := fmt.Sprintf(
		"Price drop: %s\nCurrent price: ₹%d\nYour alert price: ₹%d\n%s",
		alert.ProductName,
		alert.CurrentPrice,
		alert.AlertPrice,
		alert.ProductURL,
	)

	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	t.logger.Debug("sent telegram alert", "product", alert.ProductName)
	return nil
}
