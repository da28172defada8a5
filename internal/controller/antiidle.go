package controller

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fakesalmon/minefleet/internal/actor"
	"github.com/fakesalmon/minefleet/internal/scheduler"
	"github.com/fakesalmon/minefleet/internal/utils"
)

// busyKeys are the scheduled behaviors anti-idle must not disturb while
// they run continuously.
var busyKeys = []scheduler.Key{scheduler.KeyAttack, scheduler.KeyMine, scheduler.KeyPlace}

// AntiIdle fires one small, harmless action at a jittered interval so the
// server never counts the bot as AFK. It yields whenever the scheduler or
// a held movement control is doing real work.
type AntiIdle struct {
	base
	act      actor.Actor
	sched    *scheduler.Scheduler
	logger   *slog.Logger
	emit     func(line string)
	minDelay time.Duration
	maxDelay time.Duration
}

func NewAntiIdle(act actor.Actor, sched *scheduler.Scheduler, logger *slog.Logger, emit func(string), minDelay, maxDelay time.Duration) *AntiIdle {
	return &AntiIdle{
		act:      act,
		sched:    sched,
		logger:   logger,
		emit:     emit,
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

func (a *AntiIdle) Name() string { return "anti-idle" }

func (a *AntiIdle) Start() {
	if a.base.start(a.run) {
		a.emit("Anti-idle enabled.")
	}
}

func (a *AntiIdle) run(stop <-chan struct{}) {
	for {
		if !wait(stop, utils.RandDuration(a.minDelay, a.maxDelay)) {
			return
		}
		if a.conflicted() {
			a.logger.Debug("anti-idle yielding to active behavior")
			continue
		}
		a.performRandom(stop)
	}
}

// conflicted reports whether the bot is visibly doing something already:
// a continuous combat/terrain behavior or a held movement key.
func (a *AntiIdle) conflicted() bool {
	if a.sched.Busy(busyKeys...) {
		return true
	}
	for _, c := range actor.MoveControls {
		if a.act.ControlState(c) {
			return true
		}
	}
	return false
}

func (a *AntiIdle) performRandom(stop <-chan struct{}) {
	switch utils.RandRng(0, 6) {
	case 0:
		a.nudge(stop)
	case 1:
		a.randomLook()
	case 2:
		a.sneakPulse(stop)
	case 3:
		a.jump(stop)
	case 4:
		a.ping()
	case 5:
		a.hotbarSwap()
	case 6:
		a.armSwing()
	}
}

// nudge taps a random movement key for a fraction of a second.
func (a *AntiIdle) nudge(stop <-chan struct{}) {
	c := actor.MoveControls[utils.RandRng(0, len(actor.MoveControls)-1)]
	a.emit(fmt.Sprintf("[anti-idle] nudging %s", c))
	_ = a.act.SetControl(c, true)
	wait(stop, time.Duration(utils.RandRng(200, 600))*time.Millisecond)
	_ = a.act.SetControl(c, false)
}

func (a *AntiIdle) randomLook() {
	a.emit("[anti-idle] looking around")
	yaw := utils.RandFloat(-3.14159, 3.14159)
	pitch := utils.RandFloat(-0.5, 0.5)
	_ = a.act.Look(yaw, pitch)
}

func (a *AntiIdle) sneakPulse(stop <-chan struct{}) {
	a.emit("[anti-idle] sneak pulse")
	_ = a.act.SetControl(actor.ControlSneak, true)
	wait(stop, time.Duration(utils.RandRng(300, 800))*time.Millisecond)
	_ = a.act.SetControl(actor.ControlSneak, false)
}

func (a *AntiIdle) jump(stop <-chan struct{}) {
	a.emit("[anti-idle] jumping")
	_ = a.act.SetControl(actor.ControlJump, true)
	wait(stop, 200*time.Millisecond)
	_ = a.act.SetControl(actor.ControlJump, false)
}

func (a *AntiIdle) ping() {
	a.emit("[anti-idle] chat ping")
	_ = a.act.Chat(fmt.Sprintf("/ping %d", utils.RandRng(100, 999)))
}

func (a *AntiIdle) hotbarSwap() {
	slot := utils.RandRng(0, 8)
	a.emit(fmt.Sprintf("[anti-idle] switching to hotbar slot %d", slot))
	_ = a.act.SetHotbarSlot(slot)
}

func (a *AntiIdle) armSwing() {
	a.emit("[anti-idle] swinging arm")
	_ = a.act.SwingArm()
}
