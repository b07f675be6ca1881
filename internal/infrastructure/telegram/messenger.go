// Package telegram implements the notification messenger over the Telegram
// Bot API.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"MediaTrends/internal/ports"
)

// Messenger sends notification messages through a Telegram bot.
type Messenger struct {
	bot *tgbotapi.BotAPI
}

var _ ports.Messenger = (*Messenger)(nil)

// NewMessenger authorizes the bot with the given token.
func NewMessenger(token string) (*Messenger, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authorize telegram bot: %w", err)
	}
	return &Messenger{bot: bot}, nil
}

// SendMessage delivers an HTML-formatted message to the chat. The bot API
// client has no context plumbing, so cancellation is checked up front.
func (m *Messenger) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = false

	if _, err := m.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message to %d: %w", chatID, err)
	}
	return nil
}
