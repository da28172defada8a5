package scheduler

import (
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakesalmon/minefleet/internal/actor"
	"github.com/fakesalmon/minefleet/internal/actor/sim"
)

func newOnlineSim(t *testing.T, world sim.World) *sim.Sim {
	t.Helper()
	conn := sim.NewConnector(world)
	conn.SpawnDelay = time.Millisecond
	spawned := make(chan struct{})
	_, err := conn.Connect(actor.Options{
		Username: "tester",
		Events:   actor.Events{OnSpawn: func() { close(spawned) }},
	})
	require.NoError(t, err)
	select {
	case <-spawned:
	case <-time.After(time.Second):
		t.Fatal("sim actor never spawned")
	}
	return conn.Last()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func worldWithCursorBlock() sim.World {
	w := sim.DefaultWorld()
	w.CursorBlock = &actor.Block{Name: "stone", Position: actor.Vec3{X: 2, Y: 64, Z: 0}}
	return w
}

func TestIntervalThenStopLeavesNoLiveTimer(t *testing.T) {
	act := newOnlineSim(t, worldWithCursorBlock())
	s := New(act, testLogger())

	require.NoError(t, s.SetMode(KeyMine, ModeInterval, Options{IntervalTicks: 1}))
	require.NoError(t, s.SetMode(KeyMine, ModeStop, Options{}))

	time.Sleep(100 * time.Millisecond)
	settled := act.CallCount("dig")
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, settled, act.CallCount("dig"), "dig fired after Stop")
	assert.Zero(t, s.ActiveCount())
}

func TestRepeatedSetModeNeverStacksLoops(t *testing.T) {
	w := sim.DefaultWorld()
	w.Inventory.MainHand = &actor.Item{Name: "cobblestone", Count: 1000}
	act := newOnlineSim(t, w)
	s := New(act, testLogger())

	// 1 tick = 50ms. Five overlapping installs must collapse to one loop.
	for i := 0; i < 5; i++ {
		require.NoError(t, s.SetMode(KeyDrop, ModeInterval, Options{IntervalTicks: 1}))
	}
	time.Sleep(400 * time.Millisecond)
	require.NoError(t, s.SetMode(KeyDrop, ModeStop, Options{}))

	// A single 50ms loop fires ~8-13 times in 400ms (plus the immediate
	// per-install shots); stacked loops would be 5x that.
	assert.LessOrEqual(t, act.CallCount("toss"), 20)
	assert.GreaterOrEqual(t, act.CallCount("toss"), 5)
}

func TestListActiveReflectsChangesSynchronously(t *testing.T) {
	act := newOnlineSim(t, sim.DefaultWorld())
	s := New(act, testLogger())

	require.NoError(t, s.SetMode(KeyAttack, ModeContinuous, Options{}))
	active := s.ListActive()
	require.Len(t, active, 1)
	assert.Equal(t, KeyAttack, active[0].Key)
	assert.Equal(t, ModeContinuous, active[0].Mode)

	require.NoError(t, s.SetMode(KeyAttack, ModeStop, Options{}))
	assert.Empty(t, s.ListActive())
}

func TestOnChangeFiresPerTransition(t *testing.T) {
	act := newOnlineSim(t, sim.DefaultWorld())
	s := New(act, testLogger())

	var last []ActiveAction
	calls := 0
	s.OnChange(func(a []ActiveAction) {
		last = a
		calls++
	})

	require.NoError(t, s.SetMode(KeySneak, ModeContinuous, Options{}))
	require.Equal(t, 1, calls)
	require.Len(t, last, 1)

	require.NoError(t, s.SetMode(KeySneak, ModeStop, Options{}))
	require.Equal(t, 2, calls)
	assert.Empty(t, last)
}

func TestContinuousReplaceSameKeyKeepsControl(t *testing.T) {
	act := newOnlineSim(t, sim.DefaultWorld())
	s := New(act, testLogger())

	// The displaced loop's control clear must land before the
	// replacement's assert, never after it.
	for i := 0; i < 20; i++ {
		require.NoError(t, s.SetMode(KeyJump, ModeContinuous, Options{}))
		time.Sleep(5 * time.Millisecond)
		require.NoError(t, s.SetMode(KeyJump, ModeContinuous, Options{}))
		time.Sleep(20 * time.Millisecond)
		require.True(t, act.ControlState(actor.ControlJump),
			"replacement lost its control to the displaced loop (iteration %d)", i)
	}

	s.StopAll()
	assert.False(t, act.ControlState(actor.ControlJump))
}

func TestContinuousEatReplacementKeepsHold(t *testing.T) {
	w := sim.DefaultWorld()
	w.Inventory.MainHand = &actor.Item{Name: "bread", Count: 3}
	act := newOnlineSim(t, w)
	s := New(act, testLogger())

	require.NoError(t, s.SetMode(KeyEat, ModeContinuous, Options{}))
	require.Eventually(t, func() bool {
		return act.CallCount("activateItem") == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.SetMode(KeyEat, ModeContinuous, Options{}))
	require.Eventually(t, func() bool {
		return act.CallCount("activateItem") == 2
	}, time.Second, 5*time.Millisecond)
	// The displaced hold released exactly once, before the new hold began.
	assert.Equal(t, 1, act.CallCount("deactivateItem"))

	require.NoError(t, s.SetMode(KeyEat, ModeStop, Options{}))
	require.Eventually(t, func() bool {
		return act.CallCount("deactivateItem") == 2
	}, time.Second, 5*time.Millisecond)
}

func TestConcurrentSetModeDeliversFramesInStateOrder(t *testing.T) {
	act := newOnlineSim(t, sim.DefaultWorld())
	s := New(act, testLogger())

	var mu sync.Mutex
	var last []ActiveAction
	s.OnChange(func(a []ActiveAction) {
		mu.Lock()
		last = a
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				if (g+i)%2 == 0 {
					_ = s.SetMode(KeySneak, ModeContinuous, Options{})
				} else {
					_ = s.SetMode(KeySneak, ModeStop, Options{})
				}
			}
		}(g)
	}
	wg.Wait()

	mu.Lock()
	got := last
	mu.Unlock()
	assert.Equal(t, s.ListActive(), got, "last delivered frame is stale")
	s.StopAll()
}

// entityAtYawOffset places an entity dist blocks away, rotated offsetDeg
// from straight ahead (+X) and vertically centered on the actor's eye line
// so only the yaw axis matters.
func entityAtYawOffset(origin actor.Vec3, offsetDeg, dist float64) actor.Entity {
	rad := offsetDeg * math.Pi / 180
	height := 1.8
	return actor.Entity{
		ID:   1,
		Name: "zombie",
		Kind: "mob",
		Position: actor.Vec3{
			X: origin.X + dist*math.Cos(rad),
			Y: origin.Y + actor.EyeHeight - height/2,
			Z: origin.Z + dist*math.Sin(rad),
		},
		Height: height,
	}
}

func TestAttackIgnoresTargetOutsideTolerance(t *testing.T) {
	w := sim.DefaultWorld()
	w.Entities = []actor.Entity{entityAtYawOffset(w.Position, 40, 3)}
	act := newOnlineSim(t, w)
	act.SetLook(0, 0)
	s := New(act, testLogger())

	require.NoError(t, s.SetMode(KeyAttack, ModeContinuous, Options{}))
	time.Sleep(700 * time.Millisecond)
	s.StopAll()

	assert.Zero(t, act.CallCount("attack"), "attacked a target 40 degrees off-axis")
}

func TestAttackHitsInToleranceTargetAndRestoresAim(t *testing.T) {
	w := sim.DefaultWorld()
	w.Entities = []actor.Entity{entityAtYawOffset(w.Position, 10, 3)}
	act := newOnlineSim(t, w)
	act.SetLook(0, 0)
	s := New(act, testLogger())

	require.NoError(t, s.SetMode(KeyAttack, ModeOnce, Options{}))
	require.Eventually(t, func() bool {
		return act.CallCount("attack") >= 1
	}, time.Second, 10*time.Millisecond)

	require.NotNil(t, act.LastAttacked())
	assert.Equal(t, "zombie", act.LastAttacked().Name)
	// The aim alignment for the swing must not leak out.
	st := act.State()
	assert.InDelta(t, 0, st.Yaw, 1e-9)
	assert.InDelta(t, 0, st.Pitch, 1e-9)
}

func TestMineOnlyDigsCursorBlock(t *testing.T) {
	act := newOnlineSim(t, sim.DefaultWorld()) // no cursor block
	s := New(act, testLogger())

	require.NoError(t, s.SetMode(KeyMine, ModeOnce, Options{}))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, act.CallCount("dig"))
	assert.Zero(t, act.CallCount("look"), "mine must never rotate the actor")
}

func TestDropWholeStackFlag(t *testing.T) {
	w := sim.DefaultWorld()
	w.Inventory.MainHand = &actor.Item{Name: "dirt", Count: 64}
	act := newOnlineSim(t, w)
	s := New(act, testLogger())

	require.NoError(t, s.SetMode(KeyDrop, ModeOnce, Options{WholeStack: true}))
	require.Eventually(t, func() bool {
		return act.CallCount("tossStack") == 1
	}, time.Second, 10*time.Millisecond)
	assert.Nil(t, act.HeldItem())
}

func TestContinuousEatHoldsAndReleasesOnStop(t *testing.T) {
	w := sim.DefaultWorld()
	w.Inventory.MainHand = &actor.Item{Name: "bread", Count: 3}
	act := newOnlineSim(t, w)
	s := New(act, testLogger())

	require.NoError(t, s.SetMode(KeyEat, ModeContinuous, Options{}))
	require.Eventually(t, func() bool {
		return act.CallCount("activateItem") == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, s.SetMode(KeyEat, ModeStop, Options{}))
	require.Eventually(t, func() bool {
		return act.CallCount("deactivateItem") == 1
	}, time.Second, 10*time.Millisecond)
	assert.Zero(t, s.ActiveCount())
}

func TestContinuousSneakSetsAndClearsControl(t *testing.T) {
	act := newOnlineSim(t, sim.DefaultWorld())
	s := New(act, testLogger())

	require.NoError(t, s.SetMode(KeySneak, ModeContinuous, Options{}))
	require.Eventually(t, func() bool {
		return act.ControlState(actor.ControlSneak)
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.SetMode(KeySneak, ModeStop, Options{}))
	require.Eventually(t, func() bool {
		return !act.ControlState(actor.ControlSneak)
	}, time.Second, 5*time.Millisecond)
}

func TestStopAllCancelsEveryKey(t *testing.T) {
	w := worldWithCursorBlock()
	w.Inventory.MainHand = &actor.Item{Name: "dirt", Count: 640}
	act := newOnlineSim(t, w)
	s := New(act, testLogger())

	require.NoError(t, s.SetMode(KeyMine, ModeContinuous, Options{}))
	require.NoError(t, s.SetMode(KeyDrop, ModeInterval, Options{IntervalTicks: 2}))
	require.NoError(t, s.SetMode(KeyJump, ModeContinuous, Options{}))
	require.Equal(t, 3, s.ActiveCount())

	s.StopAll()
	require.Zero(t, s.ActiveCount())

	time.Sleep(150 * time.Millisecond)
	digs, tosses := act.CallCount("dig"), act.CallCount("toss")
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, digs, act.CallCount("dig"))
	assert.Equal(t, tosses, act.CallCount("toss"))
	assert.False(t, act.ControlState(actor.ControlJump))
}

func TestUnknownKeyAndModeRejected(t *testing.T) {
	act := newOnlineSim(t, sim.DefaultWorld())
	s := New(act, testLogger())

	assert.Error(t, s.SetMode(Key("dance"), ModeOnce, Options{}))
	assert.Error(t, s.SetMode(KeyAttack, Mode("Sometimes"), Options{}))
	assert.Empty(t, s.ListActive())
}

func TestBusyReportsContinuousOnly(t *testing.T) {
	act := newOnlineSim(t, sim.DefaultWorld())
	s := New(act, testLogger())

	require.NoError(t, s.SetMode(KeyAttack, ModeInterval, Options{IntervalTicks: 100}))
	assert.False(t, s.Busy(KeyAttack, KeyMine, KeyPlace))

	require.NoError(t, s.SetMode(KeyAttack, ModeContinuous, Options{}))
	assert.True(t, s.Busy(KeyAttack, KeyMine, KeyPlace))
	s.StopAll()
}
