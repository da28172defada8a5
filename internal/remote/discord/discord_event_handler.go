package discord

import (
	"context"
	"fmt"

	"github.com/fakesalmon/minefleet/internal/event"
)

// Handle is the bus handler: lifecycle events become channel messages,
// everything else is ignored.
func (b *Bot) Handle(ctx context.Context, e event.Event) error {
	if !b.shouldPublish(e) {
		return nil
	}

	switch evt := e.(type) {
	case event.BotConnectedEvent:
		return b.sendEventMessage(ctx, fmt.Sprintf(":green_circle: **%s** is online", evt.DisplayName))
	case event.BotDisconnectedEvent:
		msg := fmt.Sprintf(":red_circle: %s", evt.Message())
		if evt.WillReconnect {
			msg += " (reconnecting)"
		}
		return b.sendEventMessage(ctx, msg)
	case event.BotDiedEvent:
		return b.sendEventMessage(ctx, fmt.Sprintf(":skull: %s", evt.Message()))
	case event.BotKickedEvent:
		return b.sendEventMessage(ctx, fmt.Sprintf(":boot: %s", evt.Message()))
	case event.ServerStatusEvent:
		return b.sendEventMessage(ctx, evt.Message())
	}
	return nil
}

func (b *Bot) shouldPublish(e event.Event) bool {
	switch e.(type) {
	case event.BotConnectedEvent,
		event.BotDisconnectedEvent,
		event.BotDiedEvent,
		event.BotKickedEvent,
		event.ServerStatusEvent:
		return true
	}
	return false
}
