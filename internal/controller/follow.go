package controller

import (
	"log/slog"
	"time"

	"github.com/fakesalmon/minefleet/internal/actor"
)

const (
	followInterval = 2 * time.Second
	followRange    = 2.0
)

// Follow trails a named player: every cycle it looks the player up and, if
// visible and out of range, re-issues a navigation goal next to them. A
// missing player is a silent no-op so the bot just waits where it is.
type Follow struct {
	base
	act    actor.Actor
	logger *slog.Logger
	target string
}

func NewFollow(act actor.Actor, logger *slog.Logger, target string) *Follow {
	return &Follow{act: act, logger: logger, target: target}
}

func (f *Follow) Name() string { return "follow" }

func (f *Follow) Start() {
	f.base.start(f.run)
}

func (f *Follow) run(stop <-chan struct{}) {
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			f.act.StopNavigation()
			return
		case <-ticker.C:
			f.cycle()
		}
	}
}

func (f *Follow) cycle() {
	ent := f.act.FindPlayer(f.target)
	if ent == nil {
		return
	}
	if f.act.State().Position.DistanceTo(ent.Position) <= followRange {
		return
	}
	err := f.act.NavigateTo(ent.Position, actor.NavigateOptions{Range: followRange})
	if err != nil {
		f.logger.Debug("follow navigation failed", slog.String("target", f.target), slog.Any("error", err))
	}
}
