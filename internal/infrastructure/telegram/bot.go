package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"MediaTrends/internal/domain"
	"MediaTrends/internal/ports"
)

// SubscriptionCommands is the slice of the subscription service the bot
// needs; the concrete implementation lives in the usecase layer.
type SubscriptionCommands interface {
	Track(ctx context.Context, ownerID int64, keyword string) (domain.KeywordSubscription, error)
	Untrack(ctx context.Context, ownerID int64, keyword string) error
	List(ctx context.Context, ownerID int64) ([]domain.KeywordSubscription, error)
}

// Listener polls the bot's update stream and handles the subscription
// commands: /track, /untrack, /list, /help. The chat ID doubles as the
// subscription owner ID.
type Listener struct {
	bot      *tgbotapi.BotAPI
	commands SubscriptionCommands
	logger   *slog.Logger
}

// NewListener wires the command handler onto an authorized bot.
func NewListener(m *Messenger, commands SubscriptionCommands, logger *slog.Logger) *Listener {
	return &Listener{bot: m.bot, commands: commands, logger: logger}
}

// Run consumes updates until ctx is canceled.
func (l *Listener) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := l.bot.GetUpdatesChan(cfg)

	l.logger.Info("command listener started", "bot", l.bot.Self.UserName)
	for {
		select {
		case <-ctx.Done():
			l.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			l.handle(ctx, update.Message)
		}
	}
}

func (l *Listener) handle(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	var reply string
	switch msg.Command() {
	case "track":
		reply = l.track(ctx, chatID, args)
	case "untrack":
		reply = l.untrack(ctx, chatID, args)
	case "list":
		reply = l.list(ctx, chatID)
	case "help", "start":
		reply = helpText
	default:
		reply = "Unknown command. " + helpText
	}

	out := tgbotapi.NewMessage(chatID, reply)
	out.ParseMode = tgbotapi.ModeHTML
	if _, err := l.bot.Send(out); err != nil {
		l.logger.Warn("cannot send command reply", "chat", chatID, "error", err)
	}
}

const helpText = "Commands:\n" +
	"/track &lt;keyword&gt; — get notified about articles mentioning the keyword\n" +
	"/untrack &lt;keyword&gt; — stop tracking\n" +
	"/list — show tracked keywords"

func (l *Listener) track(ctx context.Context, chatID int64, keyword string) string {
	sub, err := l.commands.Track(ctx, chatID, keyword)
	switch {
	case errors.Is(err, ports.ErrDuplicateSubscription):
		return fmt.Sprintf("You already track <b>%s</b>.", html.EscapeString(keyword))
	case err != nil:
		l.logger.Warn("track failed", "chat", chatID, "keyword", keyword, "error", err)
		return "Could not save the keyword, try again later."
	default:
		return fmt.Sprintf("Tracking <b>%s</b>. Translations will be added shortly.", html.EscapeString(sub.Keyword))
	}
}

func (l *Listener) untrack(ctx context.Context, chatID int64, keyword string) string {
	if err := l.commands.Untrack(ctx, chatID, keyword); err != nil {
		l.logger.Warn("untrack failed", "chat", chatID, "keyword", keyword, "error", err)
		return "Could not remove the keyword, try again later."
	}
	return fmt.Sprintf("Stopped tracking <b>%s</b>.", html.EscapeString(keyword))
}

func (l *Listener) list(ctx context.Context, chatID int64) string {
	subs, err := l.commands.List(ctx, chatID)
	if err != nil {
		l.logger.Warn("list failed", "chat", chatID, "error", err)
		return "Could not load your keywords, try again later."
	}
	if len(subs) == 0 {
		return "You are not tracking any keywords yet. Use /track &lt;keyword&gt;."
	}

	var b strings.Builder
	b.WriteString("Tracked keywords:\n")
	for _, sub := range subs {
		b.WriteString("• ")
		b.WriteString(html.EscapeString(sub.Keyword))
		if len(sub.Aliases) > 1 {
			b.WriteString(fmt.Sprintf(" (%d variants)", len(sub.Aliases)))
		}
		b.WriteString("\n")
	}
	return b.String()
}
