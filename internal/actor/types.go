package actor

import "math"

// Vec3 is a world coordinate.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) DistanceTo(o Vec3) float64 {
	dx, dy, dz := o.X-v.X, o.Y-v.Y, o.Z-v.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Control is a persistent movement control state, mirroring the client's
// held-key model.
type Control string

const (
	ControlForward Control = "forward"
	ControlBack    Control = "back"
	ControlLeft    Control = "left"
	ControlRight   Control = "right"
	ControlJump    Control = "jump"
	ControlSneak   Control = "sneak"
	ControlSprint  Control = "sprint"
)

// MoveControls is the subset of controls the anti-idle nudge picks from and
// the conflict check scans.
var MoveControls = []Control{ControlForward, ControlBack, ControlLeft, ControlRight}

type Hand string

const (
	MainHand Hand = "hand"
	OffHand  Hand = "off-hand"
)

type ArmorPart string

const (
	ArmorHead  ArmorPart = "head"
	ArmorChest ArmorPart = "chest"
	ArmorLegs  ArmorPart = "legs"
	ArmorFeet  ArmorPart = "feet"
)

// Item is one inventory stack.
type Item struct {
	Name       string   `json:"name"`
	Count      int      `json:"count"`
	Durability int      `json:"durability,omitempty"`
	Enchants   []string `json:"enchants,omitempty"`
}

// Inventory mirrors the client layout: 36 general slots, 4 armor parts,
// both hands. Nil means an empty slot.
type Inventory struct {
	Slots    [36]*Item           `json:"slots"`
	Armor    map[ArmorPart]*Item `json:"armor"`
	MainHand *Item               `json:"mainHand"`
	OffHand  *Item               `json:"offHand"`
}

// EmptySlotCount reports free general slots.
func (inv Inventory) EmptySlotCount() int {
	n := 0
	for _, it := range inv.Slots {
		if it == nil {
			n++
		}
	}
	return n
}

// Entity is a visible world entity (player, mob, item frame...).
type Entity struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Kind     string  `json:"kind"` // "player", "mob", ...
	Position Vec3    `json:"position"`
	Height   float64 `json:"height"`
}

// Block is a world block, e.g. the one currently under the aim cursor.
type Block struct {
	Name     string `json:"name"`
	Position Vec3   `json:"position"`
}

type Effect struct {
	Name      string `json:"type"`
	Amplifier int    `json:"amp"`
	Duration  int    `json:"dur"`
}

// State is a point-in-time snapshot of the actor's own entity. Readers
// always take a fresh snapshot, nothing here is cached by callers.
type State struct {
	Position  Vec3
	Yaw       float64 // radians
	Pitch     float64 // radians
	Health    float64
	Food      float64
	XPLevel   int
	Dimension string
	TimeOfDay int // game ticks within the day-night cycle
	Sleeping  bool
	Effects   []Effect
}

const (
	// DimensionOverworld is the only dimension auto-sleep operates in.
	DimensionOverworld = "overworld"

	// EyeHeight offsets aim calculations from feet to eyes.
	EyeHeight = 1.62
)

// NavigateOptions tunes a navigation request. Breaking/placing terrain is
// off unless the entry's mine-place permission tweak allows it.
type NavigateOptions struct {
	AllowBreaking bool
	AllowPlacing  bool
	// Range is the acceptable stand-off distance from the goal; zero means
	// reach the exact block.
	Range float64
}
