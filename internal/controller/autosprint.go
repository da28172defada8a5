package controller

import (
	"time"

	"github.com/fakesalmon/minefleet/internal/actor"
)

const sprintReassert = 5 * time.Second

// AutoSprint keeps the sprint control asserted while enabled, re-applying
// it periodically in case a respawn or server correction cleared it.
type AutoSprint struct {
	base
	act actor.Actor
}

func NewAutoSprint(act actor.Actor) *AutoSprint {
	return &AutoSprint{act: act}
}

func (a *AutoSprint) Name() string { return "auto-sprint" }

func (a *AutoSprint) Start() {
	a.base.start(a.run)
}

func (a *AutoSprint) run(stop <-chan struct{}) {
	_ = a.act.SetControl(actor.ControlSprint, true)
	ticker := time.NewTicker(sprintReassert)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			_ = a.act.SetControl(actor.ControlSprint, false)
			return
		case <-ticker.C:
			_ = a.act.SetControl(actor.ControlSprint, true)
		}
	}
}
