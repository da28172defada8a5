package event

import (
	"time"
)

// Event is the interface implemented by every fleet event pushed through
// the bus. Handlers (dashboard log, Discord, Telegram) decide per type
// whether they care.
type Event interface {
	Message() string
	OccurredAt() time.Time
	BotID() string
}

type BaseEvent struct {
	message    string
	occurredAt time.Time
	botID      string
}

func (b BaseEvent) Message() string {
	return b.message
}

func (b BaseEvent) OccurredAt() time.Time {
	return b.occurredAt
}

func (b BaseEvent) BotID() string {
	return b.botID
}

func Text(botID string, message string) BaseEvent {
	return BaseEvent{
		message:    message,
		occurredAt: time.Now(),
		botID:      botID,
	}
}

// BotAddedEvent fires when a new entry joins the registry.
type BotAddedEvent struct {
	BaseEvent
	DisplayName string
}

func BotAdded(be BaseEvent, displayName string) BotAddedEvent {
	return BotAddedEvent{BaseEvent: be, DisplayName: displayName}
}

// BotRemovedEvent fires when an entry is deleted from the registry.
type BotRemovedEvent struct {
	BaseEvent
}

func BotRemoved(be BaseEvent) BotRemovedEvent {
	return BotRemovedEvent{BaseEvent: be}
}

// BotConnectedEvent fires when an actor finishes spawning in-world.
type BotConnectedEvent struct {
	BaseEvent
	DisplayName string
}

func BotConnected(be BaseEvent, displayName string) BotConnectedEvent {
	return BotConnectedEvent{BaseEvent: be, DisplayName: displayName}
}

// BotDisconnectedEvent fires when an actor connection ends, for any reason.
type BotDisconnectedEvent struct {
	BaseEvent
	Reason        string
	WillReconnect bool
}

func BotDisconnected(be BaseEvent, reason string, willReconnect bool) BotDisconnectedEvent {
	return BotDisconnectedEvent{BaseEvent: be, Reason: reason, WillReconnect: willReconnect}
}

// BotDiedEvent fires on the actor's death event.
type BotDiedEvent struct {
	BaseEvent
}

func BotDied(be BaseEvent) BotDiedEvent {
	return BotDiedEvent{BaseEvent: be}
}

// BotKickedEvent fires when the server kicks the actor.
type BotKickedEvent struct {
	BaseEvent
	Reason string
}

func BotKicked(be BaseEvent, reason string) BotKickedEvent {
	return BotKickedEvent{BaseEvent: be, Reason: reason}
}

// ChatReceivedEvent carries a chat line observed by a bot.
type ChatReceivedEvent struct {
	BaseEvent
	Line string
}

func ChatReceived(be BaseEvent, line string) ChatReceivedEvent {
	return ChatReceivedEvent{BaseEvent: be, Line: line}
}

// ServerStatusEvent fires when the game server's reachability flips.
type ServerStatusEvent struct {
	BaseEvent
	Online bool
}

func ServerStatus(be BaseEvent, online bool) ServerStatusEvent {
	return ServerStatusEvent{BaseEvent: be, Online: online}
}
