package scheduler

import (
	"log/slog"
	"time"

	"github.com/fakesalmon/minefleet/internal/actor"
)

// perform executes one shot of the behavior. Runs on a scheduler goroutine;
// every actor error is swallowed here so the schedule survives it.
func (s *Scheduler) perform(key Key, st *actionState) {
	if st.stopped() {
		return
	}
	switch key {
	case KeyAttack:
		s.performAttack()
	case KeyMine:
		s.performMine()
	case KeyPlace:
		s.performPlace(st)
	case KeyEat:
		s.performEat()
	case KeyDrop:
		s.performDrop(st)
	case KeyJump:
		s.performJump(st)
	case KeySneak:
		s.performSneakPulse(st)
	}
}

// performAttack only acts on a target already within the angular tolerance;
// proximity alone never triggers an attack. Aligning to the target is the
// one orientation change this behavior owns, so the pre-attack aim is
// restored afterwards.
func (s *Scheduler) performAttack() {
	ent := s.act.NearestEntity()
	if ent == nil {
		return
	}
	st := s.act.State()
	if !isLookingAt(st, ent, degToRad(attackToleranceDeg)) {
		return
	}
	_ = s.act.LookAt(aimPoint(ent))
	if err := s.act.Attack(ent); err != nil {
		s.logger.Debug("attack failed", slog.String("target", ent.Name), slog.Any("error", err))
	}
	_ = s.act.Look(st.Yaw, st.Pitch)
}

// performMine digs whatever is under the aim cursor; it never rotates to
// pick a target.
func (s *Scheduler) performMine() {
	blk := s.act.BlockAtCursor(cursorReach)
	if blk == nil {
		return
	}
	if err := s.act.Dig(blk); err != nil {
		s.logger.Debug("dig failed", slog.String("block", blk.Name), slog.Any("error", err))
	}
}

func (s *Scheduler) performPlace(st *actionState) {
	blk := s.act.BlockAtCursor(cursorReach)
	if blk == nil || s.act.HeldItem() == nil {
		return
	}
	if err := s.act.ActivateItem(false); err != nil {
		s.logger.Debug("place failed", slog.Any("error", err))
		return
	}
	st.wait(150 * time.Millisecond)
	_ = s.act.DeactivateItem()
}

func (s *Scheduler) performEat() {
	held := s.act.HeldItem()
	if held == nil || !actor.IsEdible(held.Name) {
		return
	}
	if err := s.act.ConsumeHeld(); err != nil {
		s.logger.Debug("consume failed", slog.String("item", held.Name), slog.Any("error", err))
	}
}

func (s *Scheduler) performDrop(st *actionState) {
	if s.act.HeldItem() == nil {
		return
	}
	if err := s.act.Toss(st.wholeStack); err != nil {
		s.logger.Debug("toss failed", slog.Any("error", err))
	}
}

func (s *Scheduler) performJump(st *actionState) {
	_ = s.act.SetControl(actor.ControlJump, true)
	st.wait(200 * time.Millisecond)
	_ = s.act.SetControl(actor.ControlJump, false)
}

func (s *Scheduler) performSneakPulse(st *actionState) {
	_ = s.act.SetControl(actor.ControlSneak, true)
	st.wait(500 * time.Millisecond)
	_ = s.act.SetControl(actor.ControlSneak, false)
}

// continuousLoop holds or repeats the behavior until the state is
// cancelled. Movement-like keys toggle a persistent control; the rest
// re-attempt on a short fixed cadence.
func (s *Scheduler) continuousLoop(key Key, st *actionState) {
	switch key {
	case KeyEat:
		s.continuousEat(st)
	case KeyJump:
		_ = s.act.SetControl(actor.ControlJump, true)
		<-st.stop
		_ = s.act.SetControl(actor.ControlJump, false)
	case KeySneak:
		s.continuousSneak(st)
	default:
		cadence := continuousCadence[key]
		for {
			s.perform(key, st)
			if !st.wait(cadence) {
				return
			}
		}
	}
}

// continuousEat holds the consume until stopped or the max hold elapses.
func (s *Scheduler) continuousEat(st *actionState) {
	held := s.act.HeldItem()
	if held == nil || !actor.IsEdible(held.Name) {
		return
	}
	if err := s.act.ActivateItem(false); err != nil {
		s.logger.Debug("consume hold failed", slog.Any("error", err))
		return
	}
	st.wait(maxEatHold)
	_ = s.act.DeactivateItem()
}

// continuousSneak keeps the sneak control asserted, re-applying it on a
// cadence until stopped. The re-assertion is the maintain-state policy for
// persistent controls on unreliable transports.
func (s *Scheduler) continuousSneak(st *actionState) {
	_ = s.act.SetControl(actor.ControlSneak, true)
	ticker := time.NewTicker(sneakReassert)
	defer ticker.Stop()
	for {
		select {
		case <-st.stop:
			_ = s.act.SetControl(actor.ControlSneak, false)
			return
		case <-ticker.C:
			_ = s.act.SetControl(actor.ControlSneak, true)
		}
	}
}
