package scheduler

import (
	"math"

	"github.com/fakesalmon/minefleet/internal/actor"
)

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// aimPoint is the spot on an entity the actor aligns to: torso center.
func aimPoint(e *actor.Entity) actor.Vec3 {
	return actor.Vec3{
		X: e.Position.X,
		Y: e.Position.Y + e.Height/2,
		Z: e.Position.Z,
	}
}

// angleDiff is the absolute smallest difference between two angles, in
// radians, normalized to [0, π].
func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b+math.Pi, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	return math.Abs(d - math.Pi)
}

// isLookingAt reports whether the actor's current aim lands within maxRad
// of the entity, on both axes.
func isLookingAt(st actor.State, e *actor.Entity, maxRad float64) bool {
	if e == nil {
		return false
	}
	dx := e.Position.X - st.Position.X
	dy := (e.Position.Y + e.Height/2) - (st.Position.Y + actor.EyeHeight)
	dz := e.Position.Z - st.Position.Z
	distXZ := math.Hypot(dx, dz)
	yawTo := math.Atan2(dz, dx)
	pitchTo := math.Atan2(dy, distXZ)
	return angleDiff(st.Yaw, yawTo) <= maxRad && angleDiff(st.Pitch, pitchTo) <= maxRad
}
