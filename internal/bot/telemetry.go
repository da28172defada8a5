package bot

import (
	"time"

	"github.com/fakesalmon/minefleet/internal/actor"
)

// Status is the vitals half of a telemetry sample.
type Status struct {
	Uptime    int64          `json:"uptime"` // seconds since spawn
	Dimension string         `json:"dimension"`
	Position  actor.Vec3     `json:"position"`
	Health    float64        `json:"health"`
	Hunger    float64        `json:"hunger"`
	XP        int            `json:"xp"`
	Yaw       float64        `json:"yaw"`
	Pitch     float64        `json:"pitch"`
	Effects   []actor.Effect `json:"effects"`
	// LookingAt is the block name under the aim cursor, empty when air.
	LookingAt string `json:"lookingAt"`
}

// TelemetrySnapshot is one full per-bot sample, rebuilt from live actor
// state every cadence tick; nothing in it is cached between samples.
type TelemetrySnapshot struct {
	Status    Status          `json:"status"`
	Inventory actor.Inventory `json:"inventory"`
}

const telemetryCursorReach = 5.0

func buildSnapshot(act actor.Actor, connectedAt time.Time) TelemetrySnapshot {
	st := act.State()
	lookingAt := ""
	if blk := act.BlockAtCursor(telemetryCursorReach); blk != nil {
		lookingAt = blk.Name
	}
	effects := st.Effects
	if effects == nil {
		effects = []actor.Effect{}
	}
	return TelemetrySnapshot{
		Status: Status{
			Uptime:    int64(time.Since(connectedAt).Seconds()),
			Dimension: st.Dimension,
			Position:  st.Position,
			Health:    st.Health,
			Hunger:    st.Food,
			XP:        st.XPLevel,
			Yaw:       st.Yaw,
			Pitch:     st.Pitch,
			Effects:   effects,
			LookingAt: lookingAt,
		},
		Inventory: act.Inventory(),
	}
}
