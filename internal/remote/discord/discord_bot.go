// Package discord relays fleet lifecycle events to a Discord channel and
// answers a couple of read-only commands. Runs either as a real bot session
// or in webhook mode for send-only setups.
package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/fakesalmon/minefleet/internal/bot"
)

type Bot struct {
	discordSession *discordgo.Session
	channelID      string
	manager        *bot.Manager
	useWebhook     bool
	webhookClient  *webhookClient
}

func NewBot(token, channelID string, manager *bot.Manager, useWebhook bool, webhookURL string) (*Bot, error) {
	botInstance := &Bot{
		channelID:  channelID,
		manager:    manager,
		useWebhook: useWebhook,
	}

	if useWebhook {
		if webhookURL == "" {
			return nil, fmt.Errorf("webhook URL is required when using webhook mode")
		}
		botInstance.webhookClient = newWebhookClient(webhookURL)
		return botInstance, nil
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	botInstance.discordSession = dg

	return botInstance, nil
}

func (b *Bot) Start(ctx context.Context) error {
	if b.useWebhook {
		<-ctx.Done()
		return nil
	}

	b.discordSession.AddHandler(b.onMessageCreated)
	// MESSAGE_CONTENT intent is required to read command text.
	b.discordSession.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	if err := b.discordSession.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	<-ctx.Done()
	return b.discordSession.Close()
}

func (b *Bot) onMessageCreated(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID {
		return
	}
	if m.ChannelID != b.channelID {
		return
	}
	if !strings.HasPrefix(m.Content, "!") {
		return
	}

	prefix := strings.Split(m.Content, " ")[0]
	switch prefix {
	case "!list":
		b.handleListRequest(s, m)
	case "!help":
		b.handleHelpRequest(s, m)
	default:
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Unknown command: `%s`. Type `!help` for available commands.", prefix))
	}
}

func (b *Bot) handleListRequest(s *discordgo.Session, m *discordgo.MessageCreate) {
	views := b.manager.Views()
	if len(views) == 0 {
		s.ChannelMessageSend(m.ChannelID, "No bots registered.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Registered bots:\n")
	for _, v := range views {
		state := "offline"
		if v.Online {
			state = "online"
		}
		sb.WriteString(fmt.Sprintf("- **%s** (%s)\n", v.DisplayName, state))
	}
	s.ChannelMessageSend(m.ChannelID, sb.String())
}

func (b *Bot) handleHelpRequest(s *discordgo.Session, m *discordgo.MessageCreate) {
	s.ChannelMessageSend(m.ChannelID, "Available commands:\n`!list` - registered bots and their state\n`!help` - this message")
}

func (b *Bot) sendEventMessage(ctx context.Context, message string) error {
	if b.useWebhook {
		return b.webhookClient.Send(ctx, message)
	}
	_, err := b.discordSession.ChannelMessageSend(b.channelID, message)
	return err
}
