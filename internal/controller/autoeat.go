package controller

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fakesalmon/minefleet/internal/actor"
)

const (
	autoEatInterval  = 3 * time.Second
	autoEatThreshold = 10
)

// AutoEat watches vitals on a short cycle and, when health or hunger falls
// to the threshold, equips the best food in the inventory and consumes it.
// At most one consume attempt per cycle; a failed bite is retried on the
// next one.
type AutoEat struct {
	base
	act    actor.Actor
	logger *slog.Logger
	emit   func(line string)
}

func NewAutoEat(act actor.Actor, logger *slog.Logger, emit func(string)) *AutoEat {
	return &AutoEat{act: act, logger: logger, emit: emit}
}

func (a *AutoEat) Name() string { return "auto-eat" }

func (a *AutoEat) Start() {
	a.base.start(a.run)
}

func (a *AutoEat) run(stop <-chan struct{}) {
	ticker := time.NewTicker(autoEatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.cycle()
		}
	}
}

func (a *AutoEat) cycle() {
	st := a.act.State()
	if st.Food > autoEatThreshold && st.Health > autoEatThreshold {
		return
	}
	name, ok := a.equipBestFood()
	if !ok {
		a.emit("[auto-eat] hungry but no food in inventory")
		return
	}
	a.emit(fmt.Sprintf("[auto-eat] eating %s", name))
	if err := a.act.ConsumeHeld(); err != nil {
		a.logger.Debug("auto-eat consume failed", slog.String("item", name), slog.Any("error", err))
	}
}

// equipBestFood puts the highest-priority edible item into the main hand.
// If the held item is already the best choice it is left alone.
func (a *AutoEat) equipBestFood() (string, bool) {
	inv := a.act.Inventory()
	bestRank := -1
	bestSlot := -1
	for i, it := range inv.Slots {
		if it == nil {
			continue
		}
		r := actor.EdibleRank(it.Name)
		if r < 0 {
			continue
		}
		if bestRank < 0 || r < bestRank {
			bestRank, bestSlot = r, i
		}
	}
	if held := inv.MainHand; held != nil {
		if r := actor.EdibleRank(held.Name); r >= 0 && (bestRank < 0 || r <= bestRank) {
			return held.Name, true
		}
	}
	if bestSlot < 0 {
		return "", false
	}
	name := inv.Slots[bestSlot].Name
	if err := a.act.Equip(bestSlot, actor.MainHand); err != nil {
		a.logger.Debug("auto-eat equip failed", slog.String("item", name), slog.Any("error", err))
		return "", false
	}
	return name, true
}
