// Package telegram relays fleet lifecycle events to a Telegram chat and
// answers "list" with the current registry.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/fakesalmon/minefleet/internal/bot"
	"github.com/fakesalmon/minefleet/internal/event"
)

type Bot struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	manager *bot.Manager
	logger  *slog.Logger
}

func (b *Bot) Start(ctx context.Context) error {
	offset, err := b.getLatestOffset()
	if err != nil {
		return err
	}

	u := tgbotapi.NewUpdate(offset)
	u.Timeout = 5
	updates := b.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.bot.StopReceivingUpdates()
			for range updates {
			}
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.Chat == nil || update.Message.Chat.ID != b.chatID {
				continue
			}
			switch strings.ToLower(update.Message.Text) {
			case "list":
				b.replyWithBotList()
			}
		}
	}
}

func (b *Bot) replyWithBotList() {
	views := b.manager.Views()
	if len(views) == 0 {
		b.send("No bots registered.")
		return
	}
	var sb strings.Builder
	sb.WriteString("Registered bots:\n")
	for _, v := range views {
		state := "offline"
		if v.Online {
			state = "online"
		}
		sb.WriteString(fmt.Sprintf("- %s (%s)\n", v.DisplayName, state))
	}
	b.send(sb.String())
}

// Handle is the bus handler: lifecycle events become chat messages.
func (b *Bot) Handle(ctx context.Context, e event.Event) error {
	switch evt := e.(type) {
	case event.BotConnectedEvent:
		b.send(fmt.Sprintf("%s is online", evt.DisplayName))
	case event.BotDisconnectedEvent:
		msg := evt.Message()
		if evt.WillReconnect {
			msg += " (reconnecting)"
		}
		b.send(msg)
	case event.BotDiedEvent, event.BotKickedEvent, event.ServerStatusEvent:
		b.send(e.Message())
	}
	return nil
}

func (b *Bot) send(text string) {
	if _, err := b.bot.Send(tgbotapi.NewMessage(b.chatID, text)); err != nil {
		b.logger.Error("error sending telegram message", slog.Any("error", err))
	}
}

func (b *Bot) getLatestOffset() (int, error) {
	upds, err := b.bot.GetUpdates(tgbotapi.NewUpdate(-1))
	if err != nil {
		return 0, err
	}
	offset := 0
	if len(upds) > 0 {
		offset = upds[0].UpdateID + 1
	}
	return offset, nil
}
