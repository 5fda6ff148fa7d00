package infrastructure

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier pushes run reports to the operator's Telegram chat
type TelegramNotifier struct {
	Bot    *tgbotapi.BotAPI
	ChatID int64
}

func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot token issue: %w", err)
	}
	return &TelegramNotifier{Bot: bot, ChatID: chatID}, nil
}

// NewTelegramNotifierWithEndpoint targets a non-default Bot API server.
// endpoint must contain two %s verbs: the token and the method.
func NewTelegramNotifierWithEndpoint(token, endpoint string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("telegram bot token issue: %w", err)
	}
	return &TelegramNotifier{Bot: bot, ChatID: chatID}, nil
}

func (t *TelegramNotifier) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.ChatID, text)
	_, err := t.Bot.Send(msg)
	return err
}

// NopNotifier is used when no operator chat is configured
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string) error { return nil }
