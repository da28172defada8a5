// Package bot is the fleet supervisor: it owns the registry of bot entries,
// spawns and tears down their actors, runs the per-bot telemetry cadence and
// keeps the dashboard's registry view current.
package bot

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fakesalmon/minefleet/internal/actor"
	"github.com/fakesalmon/minefleet/internal/config"
	"github.com/fakesalmon/minefleet/internal/controller"
	"github.com/fakesalmon/minefleet/internal/event"
	"github.com/fakesalmon/minefleet/internal/scheduler"
)

const respawnDelay = time.Second

// Publisher is the dashboard side of the supervisor: everything the fleet
// pushes out goes through it. The websocket hub implements it; tests plug a
// recorder.
type Publisher interface {
	BotList(entries []View)
	BotAdded(v View)
	BotRemoved(id string)
	BotStatus(id, status string)
	Telemetry(id string, snap TelemetrySnapshot)
	ActiveActions(id string, actions []scheduler.ActiveAction)
	LogLine(id, line string)
	ChatLine(id, line string)
	Description(id, text string)
}

// Manager owns every bot entry in the process.
type Manager struct {
	logger *slog.Logger
	conn   actor.Connector
	pub    Publisher

	mu      sync.RWMutex // protects entries and order
	entries map[string]*Entry
	order   []string
}

func NewManager(logger *slog.Logger, conn actor.Connector, pub Publisher) *Manager {
	return &Manager{
		logger:  logger,
		conn:    conn,
		pub:     pub,
		entries: make(map[string]*Entry),
	}
}

// AddEntry registers a bot. Empty id gets a generated one; a duplicate id
// is rejected. When intent is true the first connection attempt starts
// immediately.
func (m *Manager) AddEntry(id, displayName string, intent bool) (View, error) {
	if displayName == "" {
		return View{}, fmt.Errorf("display name is required")
	}
	if id == "" {
		id = uuid.NewString()
	}

	e := &Entry{
		ID:          id,
		DisplayName: displayName,
		intent:      intent,
		createdAt:   time.Now(),
	}

	m.mu.Lock()
	if _, exists := m.entries[id]; exists {
		m.mu.Unlock()
		return View{}, fmt.Errorf("bot id %q already exists", id)
	}
	m.entries[id] = e
	m.order = append(m.order, id)
	m.mu.Unlock()

	m.logger.Info("bot added", slog.String("botId", id), slog.String("name", displayName))
	v := e.view(headBase())
	m.pub.BotAdded(v)
	event.Send(event.BotAdded(event.Text(id, fmt.Sprintf("Bot %s added", displayName)), displayName))

	if intent {
		m.spawn(e)
	}
	m.broadcast()
	return v, nil
}

// SetConnectionIntent flips the desired connection state and acts on it.
func (m *Manager) SetConnectionIntent(id string, desired bool) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.intent = desired
	act := e.act
	e.mu.Unlock()

	switch {
	case desired && act == nil:
		m.spawn(e)
	case !desired && act != nil:
		act.Disconnect("user requested")
	}
	m.broadcast()
	return nil
}

// RemoveEntry tears the bot down and deletes it. Every timer the entry owns
// is cancelled here or by the disconnect this triggers.
func (m *Manager) RemoveEntry(id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("unknown bot id %q", id)
	}
	delete(m.entries, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	e.mu.Lock()
	e.removed = true
	e.intent = false
	act := e.act
	m.teardownLocked(e)
	e.mu.Unlock()

	if act != nil {
		act.Disconnect("removed")
	}

	m.logger.Info("bot removed", slog.String("botId", id))
	m.pub.BotRemoved(id)
	event.Send(event.BotRemoved(event.Text(id, fmt.Sprintf("Bot %s removed", e.DisplayName))))
	m.broadcast()
	return nil
}

// SetTweaks merges a partial toggle patch. Flips act immediately while the
// actor is present; otherwise the stored set applies on next spawn.
func (m *Manager) SetTweaks(id string, patch TweaksPatch) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.tweaks.apply(patch)
	if e.act != nil {
		if patch.FollowPlayer != nil {
			m.rebuildFollowLocked(e)
		}
		m.syncControllersLocked(e)
	}
	e.mu.Unlock()

	m.broadcast()
	return nil
}

// SetDescription stores the capped text and publishes a targeted update.
func (m *Manager) SetDescription(id, text string) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	runes := []rune(text)
	if len(runes) > descriptionMax {
		text = string(runes[:descriptionMax])
	}

	e.mu.Lock()
	e.description = text
	e.mu.Unlock()

	m.pub.Description(id, text)
	return nil
}

// Views snapshots the registry in insertion order.
func (m *Manager) Views() []View {
	m.mu.RLock()
	entries := make([]*Entry, 0, len(m.order))
	for _, id := range m.order {
		if e, ok := m.entries[id]; ok {
			entries = append(entries, e)
		}
	}
	m.mu.RUnlock()

	base := headBase()
	out := make([]View, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.view(base))
	}
	return out
}

// Shutdown disconnects every actor and stops all per-entry work. The
// registry itself is left intact; the process is going away anyway.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	entries := make([]*Entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		e.intent = false
		act := e.act
		e.mu.Unlock()
		if act != nil {
			act.Disconnect("shutting down")
		}
	}
}

func (m *Manager) entry(id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("unknown bot id %q", id)
	}
	return e, nil
}

func (m *Manager) broadcast() {
	m.pub.BotList(m.Views())
}

// spawn starts one connection attempt. The entry lock is held across
// Connect so the lifecycle hooks, which fire on the connector's goroutines,
// always observe a fully wired entry.
func (m *Manager) spawn(e *Entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed || e.act != nil {
		return
	}

	host, port, version := serverTarget()
	m.logger.Info("connecting bot",
		slog.String("botId", e.ID),
		slog.String("host", host),
		slog.Int("port", port),
	)

	act, err := m.conn.Connect(actor.Options{
		Username: e.DisplayName,
		Host:     host,
		Port:     port,
		Version:  version,
		Events: actor.Events{
			OnSpawn:  func() { m.onActorSpawned(e) },
			OnEnd:    func(reason string) { m.onActorDisconnected(e, reason) },
			OnDeath:  func() { m.onActorDied(e) },
			OnKicked: func(reason string) { m.onActorKicked(e, reason) },
			OnError:  func(err error) { m.onActorError(e, err) },
			OnChat:   func(line string) { m.onActorChat(e, line) },
		},
	})
	if err != nil {
		m.logger.Error("connect failed", slog.String("botId", e.ID), slog.Any("error", err))
		m.pub.LogLine(e.ID, fmt.Sprintf("Connection failed: %v", err))
		return
	}

	e.act = act
	e.sched = scheduler.New(act, m.logger.With(slog.String("botId", e.ID)))
	id := e.ID
	e.sched.OnChange(func(actions []scheduler.ActiveAction) {
		m.pub.ActiveActions(id, actions)
	})
}

func (m *Manager) onActorSpawned(e *Entry) {
	e.mu.Lock()
	if e.removed || e.act == nil {
		e.mu.Unlock()
		return
	}
	e.lastConnectedAt = time.Now()
	connectedAt := e.lastConnectedAt
	act := e.act
	stop := make(chan struct{})
	e.telemetryStop = stop
	m.buildControllersLocked(e)
	m.syncControllersLocked(e)
	e.mu.Unlock()

	go m.telemetryLoop(e.ID, act, connectedAt, stop)

	m.logger.Info("bot online", slog.String("botId", e.ID))
	m.pub.BotStatus(e.ID, "online")
	m.pub.LogLine(e.ID, "Connected to the server.")
	event.Send(event.BotConnected(event.Text(e.ID, fmt.Sprintf("%s connected", e.DisplayName)), e.DisplayName))
	m.broadcast()
}

func (m *Manager) onActorDisconnected(e *Entry, reason string) {
	e.mu.Lock()
	if e.act == nil {
		// Teardown already ran (removal path).
		e.mu.Unlock()
		return
	}
	m.teardownLocked(e)
	willReconnect := !e.removed && e.intent && e.tweaks.AutoReconnect
	if willReconnect {
		e.reconnectTimer = time.AfterFunc(reconnectBackoff(), func() { m.reconnect(e) })
	}
	removed := e.removed
	e.mu.Unlock()

	m.logger.Info("bot offline", slog.String("botId", e.ID), slog.String("reason", reason))
	if removed {
		return
	}
	m.pub.BotStatus(e.ID, "offline")
	m.pub.LogLine(e.ID, fmt.Sprintf("Disconnected: %s", reason))
	event.Send(event.BotDisconnected(
		event.Text(e.ID, fmt.Sprintf("%s disconnected: %s", e.DisplayName, reason)),
		reason, willReconnect,
	))
	m.broadcast()
}

// teardownLocked stops everything the entry owns. Caller holds e.mu.
// Idempotent: every handle is nilled after cancellation.
func (m *Manager) teardownLocked(e *Entry) {
	if e.telemetryStop != nil {
		close(e.telemetryStop)
		e.telemetryStop = nil
	}
	for _, c := range e.controllers() {
		c.Stop()
	}
	e.antiIdle, e.autoEat, e.autoSleep, e.autoSprint, e.follow = nil, nil, nil, nil, nil
	if e.sched != nil {
		e.sched.StopAll()
		e.sched = nil
	}
	if e.reconnectTimer != nil {
		e.reconnectTimer.Stop()
		e.reconnectTimer = nil
	}
	if e.respawnTimer != nil {
		e.respawnTimer.Stop()
		e.respawnTimer = nil
	}
	e.act = nil
}

// reconnect is the backoff timer body: exactly one attempt, and only if the
// owner still wants the bot online.
func (m *Manager) reconnect(e *Entry) {
	e.mu.Lock()
	e.reconnectTimer = nil
	ok := !e.removed && e.intent && e.act == nil
	e.mu.Unlock()
	if !ok {
		return
	}
	m.pub.LogLine(e.ID, "Reconnecting...")
	m.spawn(e)
}

func (m *Manager) onActorDied(e *Entry) {
	m.pub.LogLine(e.ID, "Bot died.")
	event.Send(event.BotDied(event.Text(e.ID, fmt.Sprintf("%s died", e.DisplayName))))

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.act == nil || !e.tweaks.AutoRespawn {
		return
	}
	if e.respawnTimer != nil {
		e.respawnTimer.Stop()
	}
	e.respawnTimer = time.AfterFunc(respawnDelay, func() {
		e.mu.Lock()
		e.respawnTimer = nil
		act := e.act
		e.mu.Unlock()
		if act == nil {
			return
		}
		if err := act.Respawn(); err != nil {
			m.logger.Debug("respawn failed", slog.String("botId", e.ID), slog.Any("error", err))
			return
		}
		m.pub.LogLine(e.ID, "Respawned.")
	})
}

func (m *Manager) onActorKicked(e *Entry, reason string) {
	m.pub.LogLine(e.ID, fmt.Sprintf("Kicked: %s", reason))
	event.Send(event.BotKicked(event.Text(e.ID, fmt.Sprintf("%s kicked: %s", e.DisplayName, reason)), reason))
}

func (m *Manager) onActorError(e *Entry, err error) {
	m.logger.Warn("actor error", slog.String("botId", e.ID), slog.Any("error", err))
	m.pub.LogLine(e.ID, fmt.Sprintf("Error: %v", err))
}

func (m *Manager) onActorChat(e *Entry, line string) {
	m.pub.ChatLine(e.ID, line)
	event.Send(event.ChatReceived(event.Text(e.ID, line), line))
}

// buildControllersLocked constructs the controller set against the current
// actor. Caller holds e.mu and guarantees e.act and e.sched are live.
func (m *Manager) buildControllersLocked(e *Entry) {
	act, sched := e.act, e.sched
	logger := m.logger.With(slog.String("botId", e.ID))
	id := e.ID
	emit := func(line string) { m.pub.LogLine(id, line) }

	minDelay, maxDelay := antiIdleBand()
	e.antiIdle = controller.NewAntiIdle(act, sched, logger, emit, minDelay, maxDelay)
	e.autoEat = controller.NewAutoEat(act, logger, emit)
	e.autoSleep = controller.NewAutoSleep(act, logger, emit, func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.tweaks.AutoMinePlace
	})
	e.autoSprint = controller.NewAutoSprint(act)
	m.rebuildFollowLocked(e)
}

// rebuildFollowLocked swaps the follow controller for the current target
// name. Caller holds e.mu.
func (m *Manager) rebuildFollowLocked(e *Entry) {
	if e.follow != nil {
		e.follow.Stop()
		e.follow = nil
	}
	if e.act == nil || e.tweaks.FollowPlayer == "" {
		return
	}
	e.follow = controller.NewFollow(e.act, m.logger.With(slog.String("botId", e.ID)), e.tweaks.FollowPlayer)
}

// syncControllersLocked starts and stops controllers to match the tweak
// set. Start/Stop are idempotent, so this runs on every tweak change.
func (m *Manager) syncControllersLocked(e *Entry) {
	if e.act == nil {
		return
	}
	syncOne := func(c controller.Controller, enabled bool) {
		if c == nil {
			return
		}
		if enabled {
			c.Start()
		} else {
			c.Stop()
		}
	}
	syncOne(e.antiIdle, e.tweaks.AntiIdle)
	syncOne(e.autoEat, e.tweaks.AutoEat)
	syncOne(e.autoSleep, e.tweaks.AutoSleep)
	syncOne(e.autoSprint, e.tweaks.AutoSprint)
	syncOne(e.follow, e.tweaks.FollowPlayer != "")
}

func (m *Manager) telemetryLoop(id string, act actor.Actor, connectedAt time.Time, stop <-chan struct{}) {
	ticker := time.NewTicker(telemetryInterval())
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.pub.Telemetry(id, buildSnapshot(act, connectedAt))
		}
	}
}

// Config readers with safe fallbacks so the supervisor also works before
// config.Load ran (tests construct managers directly).

func headBase() string {
	if cfg := config.Fleet; cfg != nil {
		return cfg.Dashboard.HeadBase
	}
	return "https://minotar.net/helm"
}

func serverTarget() (host string, port int, version string) {
	if cfg := config.Fleet; cfg != nil {
		return cfg.Server.Host, cfg.Server.Port, cfg.Server.Version
	}
	return "localhost", 25565, ""
}

func reconnectBackoff() time.Duration {
	if cfg := config.Fleet; cfg != nil {
		return time.Duration(cfg.Reconnect.BackoffSeconds) * time.Second
	}
	return 3 * time.Second
}

func telemetryInterval() time.Duration {
	if cfg := config.Fleet; cfg != nil {
		return time.Duration(cfg.Telemetry.IntervalSeconds) * time.Second
	}
	return time.Second
}

func antiIdleBand() (time.Duration, time.Duration) {
	if cfg := config.Fleet; cfg != nil {
		return time.Duration(cfg.AntiIdle.MinDelaySeconds) * time.Second,
			time.Duration(cfg.AntiIdle.MaxDelaySeconds) * time.Second
	}
	return 15 * time.Second, 45 * time.Second
}
