// Package actor defines the capability contract the fleet needs from one
// connected game client. The scheduler, the autonomous controllers and the
// lifecycle supervisor all talk to this interface only; the wire protocol
// behind it is someone else's problem.
package actor

// Events carries the lifecycle callbacks an actor fires. All hooks are
// optional and are invoked from the actor's own goroutines; receivers must
// not block.
type Events struct {
	// OnSpawn fires once the actor is fully in-world and readable.
	OnSpawn func()
	// OnEnd fires exactly once when the connection is gone, whatever the
	// cause. After OnEnd no other hook fires.
	OnEnd func(reason string)
	// OnDeath fires when the actor's entity dies.
	OnDeath func()
	// OnKicked fires when the server kicks the actor, before OnEnd.
	OnKicked func(reason string)
	// OnError reports a connection-level error, before OnEnd.
	OnError func(err error)
	// OnChat receives every chat line visible to the actor.
	OnChat func(line string)
}

// Options describes one connection attempt.
type Options struct {
	Username string
	Host     string
	Port     int
	// Version pins the protocol version; empty lets the client negotiate.
	Version string
	Events  Events
}

// Connector establishes actor connections. Connect returns immediately
// with a handle in the connecting state; Events.OnSpawn (or OnEnd, on
// failure) reports the outcome asynchronously.
type Connector interface {
	Connect(opts Options) (Actor, error)
}

// Actor is a live connected game client. Every command is best-effort:
// implementations report errors but callers in the behavior layer are
// expected to swallow them and carry on. All methods are safe for
// concurrent use.
type Actor interface {
	Username() string

	// State snapshots the actor's own entity. Valid after OnSpawn.
	State() State
	Inventory() Inventory
	HeldItem() *Item

	// Movement and orientation.
	SetControl(c Control, on bool) error
	ControlState(c Control) bool
	Look(yaw, pitch float64) error
	LookAt(p Vec3) error
	NavigateTo(p Vec3, opts NavigateOptions) error
	StopNavigation()

	// World reads.
	BlockAtCursor(maxDistance float64) *Block
	NearestEntity() *Entity
	FindPlayer(name string) *Entity
	FindBed(maxDistance float64) *Block

	// Interaction.
	Dig(b *Block) error
	Attack(e *Entity) error
	ActivateItem(offHand bool) error
	DeactivateItem() error
	// ConsumeHeld blocks until the held item is consumed or fails.
	ConsumeHeld() error
	Toss(wholeStack bool) error
	Equip(slotIndex int, hand Hand) error
	// Unequip stows the item in the given hand back into the inventory.
	Unequip(hand Hand) error
	UnequipArmor(part ArmorPart) error
	SwapHands() error
	SetHotbarSlot(i int) error
	SwingArm() error
	Sleep(b *Block) error

	Chat(text string) error
	Respawn() error

	// Disconnect tears the connection down; OnEnd fires with the given
	// reason. Safe to call more than once.
	Disconnect(reason string)
}
