package bot

import (
	"fmt"
	"math"

	"github.com/fakesalmon/minefleet/internal/actor"
	"github.com/fakesalmon/minefleet/internal/scheduler"
)

// Command surface forwarded from the dashboard. Every command is a no-op
// when the actor is absent; invalid ids are the only hard errors.

var moveDirections = map[string]actor.Control{
	"forward": actor.ControlForward,
	"back":    actor.ControlBack,
	"left":    actor.ControlLeft,
	"right":   actor.ControlRight,
}

func (m *Manager) Chat(id, text string) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	act, _ := e.actorAndScheduler()
	if act == nil || text == "" {
		return nil
	}
	if err := act.Chat(text); err != nil {
		m.logger.Debug("chat failed", "botId", id, "error", err)
	}
	return nil
}

func (m *Manager) Respawn(id string) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	act, _ := e.actorAndScheduler()
	if act == nil {
		return nil
	}
	if err := act.Respawn(); err != nil {
		m.logger.Debug("respawn failed", "botId", id, "error", err)
	}
	return nil
}

// SetContinuousMove holds or releases one of the four walk directions.
func (m *Manager) SetContinuousMove(id, direction string, on bool) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	c, ok := moveDirections[direction]
	if !ok {
		return fmt.Errorf("unknown move direction %q", direction)
	}
	act, _ := e.actorAndScheduler()
	if act == nil {
		return nil
	}
	_ = act.SetControl(c, on)
	return nil
}

// JumpOnce routes through the scheduler so the pulse timer is owned and
// cancelled with everything else on teardown.
func (m *Manager) JumpOnce(id string) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	_, sched := e.actorAndScheduler()
	if sched == nil {
		return nil
	}
	return sched.SetMode(scheduler.KeyJump, scheduler.ModeOnce, scheduler.Options{})
}

func (m *Manager) ToggleSneak(id string) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	act, _ := e.actorAndScheduler()
	if act == nil {
		return nil
	}
	_ = act.SetControl(actor.ControlSneak, !act.ControlState(actor.ControlSneak))
	return nil
}

// HoldSlot equips an inventory slot into the main hand; a negative slot
// stows whatever is held back into the inventory.
func (m *Manager) HoldSlot(id string, slot int) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	act, _ := e.actorAndScheduler()
	if act == nil {
		return nil
	}
	if slot < 0 {
		if err := act.Unequip(actor.MainHand); err != nil {
			m.logger.Debug("unequip failed", "botId", id, "error", err)
		}
		return nil
	}
	if err := act.Equip(slot, actor.MainHand); err != nil {
		m.logger.Debug("equip failed", "botId", id, "slot", slot, "error", err)
	}
	return nil
}

func (m *Manager) UnequipArmor(id string, part actor.ArmorPart) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	act, _ := e.actorAndScheduler()
	if act == nil {
		return nil
	}
	if err := act.UnequipArmor(part); err != nil {
		m.logger.Debug("unequip armor failed", "botId", id, "part", string(part), "error", err)
	}
	return nil
}

func (m *Manager) SwapHands(id string) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	act, _ := e.actorAndScheduler()
	if act == nil {
		return nil
	}
	if err := act.SwapHands(); err != nil {
		m.logger.Debug("swap hands failed", "botId", id, "error", err)
	}
	return nil
}

// NavigateTo sends the bot to a coordinate. Terrain modification follows
// the mine-place permission tweak.
func (m *Manager) NavigateTo(id string, x, y, z float64) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	if math.IsNaN(x) || math.IsNaN(y) || math.IsNaN(z) {
		return fmt.Errorf("invalid coordinates")
	}
	e.mu.Lock()
	act := e.act
	allow := e.tweaks.AutoMinePlace
	e.mu.Unlock()
	if act == nil {
		return nil
	}
	m.pub.LogLine(id, fmt.Sprintf("Heading to %.0f %.0f %.0f", x, y, z))
	if err := act.NavigateTo(actor.Vec3{X: x, Y: y, Z: z}, actor.NavigateOptions{
		AllowBreaking: allow,
		AllowPlacing:  allow,
	}); err != nil {
		m.logger.Debug("navigate failed", "botId", id, "error", err)
	}
	return nil
}

func (m *Manager) StopNavigation(id string) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	act, _ := e.actorAndScheduler()
	if act == nil {
		return nil
	}
	act.StopNavigation()
	return nil
}

// RotateStep turns the view by a relative yaw/pitch delta, in radians.
// Pitch is clamped to straight up/down.
func (m *Manager) RotateStep(id string, dYaw, dPitch float64) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	act, _ := e.actorAndScheduler()
	if act == nil {
		return nil
	}
	st := act.State()
	pitch := clampPitch(st.Pitch + dPitch)
	_ = act.Look(st.Yaw+dYaw, pitch)
	return nil
}

func (m *Manager) LookAngles(id string, yaw, pitch float64) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	act, _ := e.actorAndScheduler()
	if act == nil {
		return nil
	}
	_ = act.Look(yaw, clampPitch(pitch))
	return nil
}

func (m *Manager) LookAtPoint(id string, x, y, z float64) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	act, _ := e.actorAndScheduler()
	if act == nil {
		return nil
	}
	_ = act.LookAt(actor.Vec3{X: x, Y: y, Z: z})
	return nil
}

// SetActionMode drives the behavior scheduler; the live-indicator push
// happens via the scheduler's change callback.
func (m *Manager) SetActionMode(id string, key scheduler.Key, mode scheduler.Mode, opts scheduler.Options) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	_, sched := e.actorAndScheduler()
	if sched == nil {
		return nil
	}
	return sched.SetMode(key, mode, opts)
}

// ActiveActions reports the scheduler's current state; empty when offline.
func (m *Manager) ActiveActions(id string) ([]scheduler.ActiveAction, error) {
	e, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	_, sched := e.actorAndScheduler()
	if sched == nil {
		return []scheduler.ActiveAction{}, nil
	}
	return sched.ListActive(), nil
}

func clampPitch(p float64) float64 {
	limit := math.Pi / 2
	if p > limit {
		return limit
	}
	if p < -limit {
		return -limit
	}
	return p
}
