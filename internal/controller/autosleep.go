package controller

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fakesalmon/minefleet/internal/actor"
)

const (
	autoSleepInterval = 5 * time.Second
	bedSearchRadius   = 10.0
	bedUseReach       = 3.0
	arrivalTimeout    = 10 * time.Second
	arrivalPoll       = 500 * time.Millisecond

	// Game-tick window in which beds are usable.
	nightStart = 12541
	nightEnd   = 23458
)

// AutoSleep checks every cycle whether it is night in the overworld, finds
// the nearest bed and climbs into it, walking over if needed. One attempt
// per cycle; failures are reported and retried on the next tick.
type AutoSleep struct {
	base
	act    actor.Actor
	logger *slog.Logger
	emit   func(line string)
	// allowTerrain reads the bot's mine-place permission at attempt time so
	// pathing may break or place blocks only when the owner allowed it.
	allowTerrain func() bool
}

func NewAutoSleep(act actor.Actor, logger *slog.Logger, emit func(string), allowTerrain func() bool) *AutoSleep {
	return &AutoSleep{act: act, logger: logger, emit: emit, allowTerrain: allowTerrain}
}

func (a *AutoSleep) Name() string { return "auto-sleep" }

func (a *AutoSleep) Start() {
	a.base.start(a.run)
}

func (a *AutoSleep) run(stop <-chan struct{}) {
	ticker := time.NewTicker(autoSleepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.cycle(stop)
		}
	}
}

func isNight(timeOfDay int) bool {
	return timeOfDay > nightStart && timeOfDay < nightEnd
}

func (a *AutoSleep) cycle(stop <-chan struct{}) {
	st := a.act.State()
	if st.Sleeping {
		return
	}
	if st.Dimension != actor.DimensionOverworld || !isNight(st.TimeOfDay) {
		return
	}
	bed := a.act.FindBed(bedSearchRadius)
	if bed == nil {
		a.emit("[auto-sleep] night time but no bed nearby")
		return
	}
	if st.Position.DistanceTo(bed.Position) > bedUseReach {
		a.emit(fmt.Sprintf("[auto-sleep] walking to bed at %.0f %.0f %.0f", bed.Position.X, bed.Position.Y, bed.Position.Z))
		allow := a.allowTerrain != nil && a.allowTerrain()
		err := a.act.NavigateTo(bed.Position, actor.NavigateOptions{
			AllowBreaking: allow,
			AllowPlacing:  allow,
			Range:         1,
		})
		if err != nil {
			a.logger.Debug("auto-sleep navigation failed", slog.Any("error", err))
			return
		}
		if !a.awaitArrival(stop, bed.Position) {
			a.emit("[auto-sleep] could not reach the bed")
			return
		}
	}
	a.emit("[auto-sleep] getting into bed")
	if err := a.act.Sleep(bed); err != nil {
		a.emit(fmt.Sprintf("[auto-sleep] failed to sleep: %v", err))
	}
}

// awaitArrival polls position until the bed is in reach or the attempt
// times out. Reports false on timeout or stop.
func (a *AutoSleep) awaitArrival(stop <-chan struct{}, goal actor.Vec3) bool {
	deadline := time.Now().Add(arrivalTimeout)
	for time.Now().Before(deadline) {
		if a.act.State().Position.DistanceTo(goal) <= bedUseReach {
			return true
		}
		if !wait(stop, arrivalPoll) {
			return false
		}
	}
	return a.act.State().Position.DistanceTo(goal) <= bedUseReach
}
