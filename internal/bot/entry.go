package bot

import (
	"sync"
	"time"

	"github.com/fakesalmon/minefleet/internal/actor"
	"github.com/fakesalmon/minefleet/internal/controller"
	"github.com/fakesalmon/minefleet/internal/scheduler"
)

// descriptionMax caps the stored per-bot description, in runes.
const descriptionMax = 127

// Entry is one bot in the registry. The manager owns the map; everything
// mutable inside an entry is guarded by its own mutex so lifecycle hooks
// firing from actor goroutines stay isolated per bot.
type Entry struct {
	ID          string
	DisplayName string

	mu              sync.Mutex
	intent          bool
	description     string
	tweaks          Tweaks
	createdAt       time.Time
	lastConnectedAt time.Time
	removed         bool

	act   actor.Actor
	sched *scheduler.Scheduler

	antiIdle   *controller.AntiIdle
	autoEat    *controller.AutoEat
	autoSleep  *controller.AutoSleep
	autoSprint *controller.AutoSprint
	follow     *controller.Follow

	telemetryStop  chan struct{}
	reconnectTimer *time.Timer
	respawnTimer   *time.Timer
}

// controllers returns every constructed controller, nils skipped.
func (e *Entry) controllers() []controller.Controller {
	all := []controller.Controller{}
	if e.antiIdle != nil {
		all = append(all, e.antiIdle)
	}
	if e.autoEat != nil {
		all = append(all, e.autoEat)
	}
	if e.autoSleep != nil {
		all = append(all, e.autoSleep)
	}
	if e.autoSprint != nil {
		all = append(all, e.autoSprint)
	}
	if e.follow != nil {
		all = append(all, e.follow)
	}
	return all
}

// View is the public projection of an entry, shipped in every registry
// snapshot.
type View struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	Online           bool   `json:"online"`
	ConnectionIntent bool   `json:"connectionIntent"`
	Description      string `json:"description"`
	AvatarURL        string `json:"avatarUrl"`
	Tweaks           Tweaks `json:"tweaks"`
}

// view snapshots the entry under its lock.
func (e *Entry) view(headBase string) View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return View{
		ID:               e.ID,
		DisplayName:      e.DisplayName,
		Online:           e.act != nil,
		ConnectionIntent: e.intent,
		Description:      e.description,
		AvatarURL:        headBase + "/" + e.DisplayName,
		Tweaks:           e.tweaks,
	}
}

// actorAndScheduler grabs both handles consistently; either may be nil.
func (e *Entry) actorAndScheduler() (actor.Actor, *scheduler.Scheduler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.act, e.sched
}
