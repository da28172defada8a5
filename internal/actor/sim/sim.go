// Package sim is an in-process actor backend: a deterministic, lock-guarded
// world implementing the full actor contract. It powers local dry runs and
// every behavioral test in the repo; a real protocol client replaces it by
// implementing actor.Connector.
package sim

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/fakesalmon/minefleet/internal/actor"
)

// World is the fixture one simulated actor spawns into. Zero value is a
// healthy, empty overworld at noon.
type World struct {
	Dimension   string
	TimeOfDay   int
	Health      float64
	Food        float64
	XPLevel     int
	Position    actor.Vec3
	Entities    []actor.Entity
	Beds        []actor.Block
	CursorBlock *actor.Block
	Inventory   actor.Inventory
	Effects     []actor.Effect
}

// DefaultWorld returns a small populated overworld.
func DefaultWorld() World {
	return World{
		Dimension: actor.DimensionOverworld,
		TimeOfDay: 6000,
		Health:    20,
		Food:      20,
		Position:  actor.Vec3{X: 0, Y: 64, Z: 0},
	}
}

// Connector spawns simulated actors. SpawnDelay controls how long after
// Connect the OnSpawn hook fires; FailNext makes the next attempt end with
// a connection error instead of spawning.
type Connector struct {
	mu         sync.Mutex
	world      World
	SpawnDelay time.Duration
	failNext   bool
	attempts   int
	last       *Sim
}

func NewConnector(world World) *Connector {
	return &Connector{
		world:      world,
		SpawnDelay: 5 * time.Millisecond,
	}
}

// FailNext makes the next Connect end with "connection refused".
func (c *Connector) FailNext() {
	c.mu.Lock()
	c.failNext = true
	c.mu.Unlock()
}

// Attempts reports how many Connect calls were made.
func (c *Connector) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Last returns the most recently created simulated actor.
func (c *Connector) Last() *Sim {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Connector) Connect(opts actor.Options) (actor.Actor, error) {
	c.mu.Lock()
	c.attempts++
	fail := c.failNext
	c.failNext = false
	s := &Sim{
		username: opts.Username,
		events:   opts.Events,
		world:    c.world,
		controls: make(map[actor.Control]bool),
		calls:    make(map[string]int),
	}
	c.last = s
	delay := c.SpawnDelay
	c.mu.Unlock()

	go func() {
		time.Sleep(delay)
		if fail {
			s.fireError(errors.New("connection refused"))
			s.end("connection refused")
			return
		}
		s.mu.Lock()
		s.online = true
		s.mu.Unlock()
		if s.events.OnSpawn != nil {
			s.events.OnSpawn()
		}
	}()

	return s, nil
}

// Sim is one simulated connection. Every capability call is recorded so
// tests can assert exactly what a behavior did.
type Sim struct {
	username string
	events   actor.Events
	endOnce  sync.Once

	mu       sync.Mutex
	online   bool
	world    World
	yaw      float64
	pitch    float64
	sleeping bool
	controls map[actor.Control]bool
	hotbar   int

	calls        map[string]int
	lastAttacked *actor.Entity
	lastNavigate actor.Vec3
	lastNavOpts  actor.NavigateOptions
	chatSent     []string
}

var errOffline = errors.New("actor offline")

func (s *Sim) record(name string) {
	s.calls[name]++
}

// CallCount reports how many times the named capability was invoked.
func (s *Sim) CallCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

// LastAttacked returns the most recent attack target, nil if none.
func (s *Sim) LastAttacked() *actor.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAttacked
}

// LastNavigate returns the most recent navigation goal and options.
func (s *Sim) LastNavigate() (actor.Vec3, actor.NavigateOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastNavigate, s.lastNavOpts
}

// ChatSent returns every line the actor said.
func (s *Sim) ChatSent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.chatSent))
	copy(out, s.chatSent)
	return out
}

// SetWorld swaps world state under the lock (tests mutate vitals, time of
// day, entities between cycles).
func (s *Sim) SetWorld(mutate func(w *World)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(&s.world)
}

// SetLook positions the aim directly, bypassing call recording.
func (s *Sim) SetLook(yaw, pitch float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.yaw, s.pitch = yaw, pitch
}

// DropConnection simulates a server-side disconnect.
func (s *Sim) DropConnection(reason string) {
	s.end(reason)
}

// Kick simulates a kick: OnKicked, then OnEnd.
func (s *Sim) Kick(reason string) {
	if s.events.OnKicked != nil {
		s.events.OnKicked(reason)
	}
	s.end(reason)
}

// Die zeroes health and fires the death hook.
func (s *Sim) Die() {
	s.mu.Lock()
	s.world.Health = 0
	s.mu.Unlock()
	if s.events.OnDeath != nil {
		s.events.OnDeath()
	}
}

// PushChat delivers an observed chat line.
func (s *Sim) PushChat(line string) {
	if s.events.OnChat != nil {
		s.events.OnChat(line)
	}
}

func (s *Sim) fireError(err error) {
	if s.events.OnError != nil {
		s.events.OnError(err)
	}
}

func (s *Sim) end(reason string) {
	s.endOnce.Do(func() {
		s.mu.Lock()
		s.online = false
		s.mu.Unlock()
		if s.events.OnEnd != nil {
			s.events.OnEnd(reason)
		}
	})
}

func (s *Sim) Username() string { return s.username }

func (s *Sim) State() actor.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return actor.State{
		Position:  s.world.Position,
		Yaw:       s.yaw,
		Pitch:     s.pitch,
		Health:    s.world.Health,
		Food:      s.world.Food,
		XPLevel:   s.world.XPLevel,
		Dimension: s.world.Dimension,
		TimeOfDay: s.world.TimeOfDay,
		Sleeping:  s.sleeping,
		Effects:   s.world.Effects,
	}
}

// Inventory returns a deep copy; later Equip/Consume calls never mutate a
// snapshot already handed out.
func (s *Sim) Inventory() actor.Inventory {
	s.mu.Lock()
	defer s.mu.Unlock()
	var inv actor.Inventory
	for i, it := range s.world.Inventory.Slots {
		inv.Slots[i] = copyItem(it)
	}
	if s.world.Inventory.Armor != nil {
		inv.Armor = make(map[actor.ArmorPart]*actor.Item, len(s.world.Inventory.Armor))
		for part, it := range s.world.Inventory.Armor {
			inv.Armor[part] = copyItem(it)
		}
	}
	inv.MainHand = copyItem(s.world.Inventory.MainHand)
	inv.OffHand = copyItem(s.world.Inventory.OffHand)
	return inv
}

func copyItem(it *actor.Item) *actor.Item {
	if it == nil {
		return nil
	}
	c := *it
	return &c
}

func (s *Sim) HeldItem() *actor.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.Inventory.MainHand
}

func (s *Sim) SetControl(c actor.Control, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return errOffline
	}
	s.record("setControl")
	s.controls[c] = on
	return nil
}

func (s *Sim) ControlState(c actor.Control) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controls[c]
}

func (s *Sim) Look(yaw, pitch float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return errOffline
	}
	s.record("look")
	s.yaw, s.pitch = yaw, pitch
	return nil
}

func (s *Sim) LookAt(p actor.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return errOffline
	}
	s.record("lookAt")
	dx := p.X - s.world.Position.X
	dy := p.Y - (s.world.Position.Y + actor.EyeHeight)
	dz := p.Z - s.world.Position.Z
	s.yaw = math.Atan2(dz, dx)
	s.pitch = math.Atan2(dy, math.Sqrt(dx*dx+dz*dz))
	return nil
}

func (s *Sim) NavigateTo(p actor.Vec3, opts actor.NavigateOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return errOffline
	}
	s.record("navigateTo")
	s.lastNavigate = p
	s.lastNavOpts = opts
	// Instant arrival; path quality is not what the fleet tests.
	s.world.Position = p
	return nil
}

func (s *Sim) StopNavigation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("stopNavigation")
}

func (s *Sim) BlockAtCursor(maxDistance float64) *actor.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("blockAtCursor")
	if s.world.CursorBlock == nil {
		return nil
	}
	if s.world.CursorBlock.Position.DistanceTo(s.world.Position) > maxDistance {
		return nil
	}
	b := *s.world.CursorBlock
	return &b
}

func (s *Sim) NearestEntity() *actor.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *actor.Entity
	bestDist := math.MaxFloat64
	for i := range s.world.Entities {
		d := s.world.Entities[i].Position.DistanceTo(s.world.Position)
		if d < bestDist {
			bestDist = d
			best = &s.world.Entities[i]
		}
	}
	if best == nil {
		return nil
	}
	e := *best
	return &e
}

func (s *Sim) FindPlayer(name string) *actor.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.world.Entities {
		e := s.world.Entities[i]
		if e.Kind == "player" && e.Name == name {
			out := e
			return &out
		}
	}
	return nil
}

func (s *Sim) FindBed(maxDistance float64) *actor.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("findBed")
	var best *actor.Block
	bestDist := maxDistance
	for i := range s.world.Beds {
		d := s.world.Beds[i].Position.DistanceTo(s.world.Position)
		if d <= bestDist {
			bestDist = d
			best = &s.world.Beds[i]
		}
	}
	if best == nil {
		return nil
	}
	b := *best
	return &b
}

func (s *Sim) Dig(b *actor.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return errOffline
	}
	s.record("dig")
	return nil
}

func (s *Sim) Attack(e *actor.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return errOffline
	}
	s.record("attack")
	s.lastAttacked = e
	return nil
}

func (s *Sim) ActivateItem(offHand bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return errOffline
	}
	s.record("activateItem")
	return nil
}

func (s *Sim) DeactivateItem() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("deactivateItem")
	return nil
}

func (s *Sim) ConsumeHeld() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return errOffline
	}
	s.record("consume")
	held := s.world.Inventory.MainHand
	if held == nil {
		return errors.New("nothing held")
	}
	held.Count--
	if held.Count <= 0 {
		s.world.Inventory.MainHand = nil
	}
	if s.world.Food < 20 {
		s.world.Food += 4
		if s.world.Food > 20 {
			s.world.Food = 20
		}
	}
	return nil
}

func (s *Sim) Toss(wholeStack bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return errOffline
	}
	if wholeStack {
		s.record("tossStack")
		s.world.Inventory.MainHand = nil
		return nil
	}
	s.record("toss")
	held := s.world.Inventory.MainHand
	if held == nil {
		return errors.New("nothing held")
	}
	held.Count--
	if held.Count <= 0 {
		s.world.Inventory.MainHand = nil
	}
	return nil
}

func (s *Sim) Equip(slotIndex int, hand actor.Hand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return errOffline
	}
	s.record("equip")
	if slotIndex < 0 || slotIndex >= len(s.world.Inventory.Slots) {
		return errors.New("slot out of range")
	}
	it := s.world.Inventory.Slots[slotIndex]
	if it == nil {
		return errors.New("empty slot")
	}
	// Swap with whatever the hand holds so the item lives in exactly one
	// place afterwards.
	if hand == actor.OffHand {
		s.world.Inventory.Slots[slotIndex] = s.world.Inventory.OffHand
		s.world.Inventory.OffHand = it
	} else {
		s.world.Inventory.Slots[slotIndex] = s.world.Inventory.MainHand
		s.world.Inventory.MainHand = it
	}
	return nil
}

func (s *Sim) Unequip(hand actor.Hand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return errOffline
	}
	s.record("unequip")
	inv := &s.world.Inventory
	var it *actor.Item
	if hand == actor.OffHand {
		it, inv.OffHand = inv.OffHand, nil
	} else {
		it, inv.MainHand = inv.MainHand, nil
	}
	if it == nil {
		return nil
	}
	for i := range inv.Slots {
		if inv.Slots[i] == nil {
			inv.Slots[i] = it
			return nil
		}
	}
	return errors.New("inventory full")
}

func (s *Sim) UnequipArmor(part actor.ArmorPart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return errOffline
	}
	s.record("unequipArmor")
	if s.world.Inventory.Armor == nil {
		return errors.New("no armor")
	}
	it := s.world.Inventory.Armor[part]
	if it == nil {
		return errors.New("slot empty")
	}
	for i := range s.world.Inventory.Slots {
		if s.world.Inventory.Slots[i] == nil {
			s.world.Inventory.Slots[i] = it
			delete(s.world.Inventory.Armor, part)
			return nil
		}
	}
	return errors.New("inventory full")
}

func (s *Sim) SwapHands() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return errOffline
	}
	s.record("swapHands")
	inv := &s.world.Inventory
	inv.MainHand, inv.OffHand = inv.OffHand, inv.MainHand
	return nil
}

func (s *Sim) SetHotbarSlot(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return errOffline
	}
	s.record("setHotbarSlot")
	s.hotbar = i
	return nil
}

func (s *Sim) SwingArm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return errOffline
	}
	s.record("swingArm")
	return nil
}

func (s *Sim) Sleep(b *actor.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return errOffline
	}
	s.record("sleep")
	s.sleeping = true
	return nil
}

func (s *Sim) Chat(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return errOffline
	}
	s.record("chat")
	s.chatSent = append(s.chatSent, text)
	return nil
}

func (s *Sim) Respawn() error {
	s.mu.Lock()
	if !s.online {
		s.mu.Unlock()
		return errOffline
	}
	s.record("respawn")
	s.world.Health = 20
	s.world.Food = 20
	s.mu.Unlock()
	return nil
}

func (s *Sim) Disconnect(reason string) {
	s.end(reason)
}
