package bot

import (
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakesalmon/minefleet/internal/actor"
	"github.com/fakesalmon/minefleet/internal/actor/sim"
	"github.com/fakesalmon/minefleet/internal/config"
	"github.com/fakesalmon/minefleet/internal/scheduler"
)

// recorder captures everything the supervisor publishes.
type recorder struct {
	mu        sync.Mutex
	lists     [][]View
	added     []View
	removed   []string
	statuses  map[string][]string
	telemetry map[string]int
	actions   map[string][][]scheduler.ActiveAction
	logs      map[string][]string
	chats     map[string][]string
	descs     map[string]string
}

func newRecorder() *recorder {
	return &recorder{
		statuses:  make(map[string][]string),
		telemetry: make(map[string]int),
		actions:   make(map[string][][]scheduler.ActiveAction),
		logs:      make(map[string][]string),
		chats:     make(map[string][]string),
		descs:     make(map[string]string),
	}
}

func (r *recorder) BotList(entries []View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists = append(r.lists, entries)
}

func (r *recorder) BotAdded(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, v)
}

func (r *recorder) BotRemoved(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, id)
}

func (r *recorder) BotStatus(id, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[id] = append(r.statuses[id], status)
}

func (r *recorder) Telemetry(id string, _ TelemetrySnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.telemetry[id]++
}

func (r *recorder) ActiveActions(id string, actions []scheduler.ActiveAction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[id] = append(r.actions[id], actions)
}

func (r *recorder) LogLine(id, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[id] = append(r.logs[id], line)
}

func (r *recorder) ChatLine(id, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats[id] = append(r.chats[id], line)
}

func (r *recorder) Description(id, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descs[id] = text
}

func (r *recorder) statusesOf(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.statuses[id]))
	copy(out, r.statuses[id])
	return out
}

func (r *recorder) lastList() []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lists) == 0 {
		return nil
	}
	return r.lists[len(r.lists)-1]
}

func (r *recorder) telemetryCount(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.telemetry[id]
}

func (r *recorder) lastActions(id string) []scheduler.ActiveAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	pushes := r.actions[id]
	if len(pushes) == 0 {
		return nil
	}
	return pushes[len(pushes)-1]
}

func (r *recorder) hasLog(id, substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, line := range r.logs[id] {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func (r *recorder) removedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.removed))
	copy(out, r.removed)
	return out
}

func setTestConfig(t *testing.T) {
	t.Helper()
	prev := config.Fleet
	cfg := &config.FleetCfg{}
	cfg.Dashboard.HeadBase = "https://minotar.net/helm"
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 25565
	cfg.Telemetry.IntervalSeconds = 1
	cfg.Reconnect.BackoffSeconds = 1
	cfg.AntiIdle.MinDelaySeconds = 15
	cfg.AntiIdle.MaxDelaySeconds = 45
	config.Fleet = cfg
	t.Cleanup(func() { config.Fleet = prev })
}

func newTestManager(t *testing.T, world sim.World) (*Manager, *sim.Connector, *recorder) {
	t.Helper()
	setTestConfig(t)
	conn := sim.NewConnector(world)
	conn.SpawnDelay = time.Millisecond
	rec := newRecorder()
	m := NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)), conn, rec)
	return m, conn, rec
}

func waitOnline(t *testing.T, rec *recorder, id string, want bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, v := range rec.lastList() {
			if v.ID == id {
				return v.Online == want
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAddEntryRejectsDuplicateID(t *testing.T) {
	m, _, _ := newTestManager(t, sim.DefaultWorld())

	_, err := m.AddEntry("b1", "Alice", false)
	require.NoError(t, err)

	_, err = m.AddEntry("b1", "Bob", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.Len(t, m.Views(), 1)
}

func TestAddEntryGeneratesID(t *testing.T) {
	m, _, _ := newTestManager(t, sim.DefaultWorld())

	v, err := m.AddEntry("", "Alice", false)
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.False(t, v.Online)
	assert.False(t, v.Tweaks.AutoReconnect, "tweaks default to all-off")
	assert.Contains(t, v.AvatarURL, "Alice")
}

func TestIntentTrueSpawnsImmediately(t *testing.T) {
	m, conn, rec := newTestManager(t, sim.DefaultWorld())

	v, err := m.AddEntry("", "Alice", true)
	require.NoError(t, err)
	waitOnline(t, rec, v.ID, true)
	assert.Equal(t, 1, conn.Attempts())
	assert.True(t, rec.hasLog(v.ID, "Connected"))
	assert.Equal(t, []string{"online"}, rec.statusesOf(v.ID))
}

func TestSetConnectionIntentOffDisconnects(t *testing.T) {
	m, conn, rec := newTestManager(t, sim.DefaultWorld())

	v, _ := m.AddEntry("", "Alice", true)
	waitOnline(t, rec, v.ID, true)

	require.NoError(t, m.SetConnectionIntent(v.ID, false))
	waitOnline(t, rec, v.ID, false)
	assert.Equal(t, 1, conn.Attempts())
	assert.True(t, rec.hasLog(v.ID, "user requested"))
}

func TestAutoReconnectSingleAttempt(t *testing.T) {
	m, conn, rec := newTestManager(t, sim.DefaultWorld())

	v, _ := m.AddEntry("", "Alice", true)
	waitOnline(t, rec, v.ID, true)
	on := true
	require.NoError(t, m.SetTweaks(v.ID, TweaksPatch{AutoReconnect: &on}))

	conn.Last().DropConnection("read timeout")
	waitOnline(t, rec, v.ID, false)

	require.Eventually(t, func() bool {
		return conn.Attempts() == 2
	}, 3*time.Second, 20*time.Millisecond)
	waitOnline(t, rec, v.ID, true)

	// The new connection is healthy: no further attempts pile up.
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, 2, conn.Attempts())
}

func TestNoReconnectWhenIntentDropped(t *testing.T) {
	m, conn, rec := newTestManager(t, sim.DefaultWorld())

	v, _ := m.AddEntry("", "Alice", true)
	waitOnline(t, rec, v.ID, true)
	on := true
	require.NoError(t, m.SetTweaks(v.ID, TweaksPatch{AutoReconnect: &on}))

	require.NoError(t, m.SetConnectionIntent(v.ID, false))
	waitOnline(t, rec, v.ID, false)

	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, 1, conn.Attempts(), "intent off must suppress reconnect")
}

func TestRemoveEntryLeavesNoRunningWork(t *testing.T) {
	w := sim.DefaultWorld()
	w.CursorBlock = &actor.Block{Name: "stone", Position: actor.Vec3{X: 2, Y: 64, Z: 0}}
	m, conn, rec := newTestManager(t, w)

	v, _ := m.AddEntry("", "Alice", true)
	waitOnline(t, rec, v.ID, true)
	require.NoError(t, m.SetActionMode(v.ID, scheduler.KeyMine, scheduler.ModeContinuous, scheduler.Options{}))
	act := conn.Last()

	require.NoError(t, m.RemoveEntry(v.ID))

	assert.Contains(t, rec.removedIDs(), v.ID)
	assert.Empty(t, m.Views())

	// Scheduler loops and telemetry must be dead.
	time.Sleep(100 * time.Millisecond)
	digs := act.CallCount("dig")
	samples := rec.telemetryCount(v.ID)
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, digs, act.CallCount("dig"))
	assert.Equal(t, samples, rec.telemetryCount(v.ID))
}

func TestRemoveEntryUnknownID(t *testing.T) {
	m, _, _ := newTestManager(t, sim.DefaultWorld())
	require.Error(t, m.RemoveEntry("ghost"))
}

func TestTweakFlipStartsControllerImmediately(t *testing.T) {
	m, conn, rec := newTestManager(t, sim.DefaultWorld())

	v, _ := m.AddEntry("", "Alice", true)
	waitOnline(t, rec, v.ID, true)
	act := conn.Last()

	on := true
	require.NoError(t, m.SetTweaks(v.ID, TweaksPatch{AutoSprint: &on}))
	require.Eventually(t, func() bool {
		return act.ControlState(actor.ControlSprint)
	}, time.Second, 10*time.Millisecond)

	off := false
	require.NoError(t, m.SetTweaks(v.ID, TweaksPatch{AutoSprint: &off}))
	require.Eventually(t, func() bool {
		return !act.ControlState(actor.ControlSprint)
	}, time.Second, 10*time.Millisecond)
}

func TestTweaksStoredWhileOfflineApplyOnSpawn(t *testing.T) {
	m, conn, rec := newTestManager(t, sim.DefaultWorld())

	v, _ := m.AddEntry("", "Alice", false)
	on := true
	require.NoError(t, m.SetTweaks(v.ID, TweaksPatch{AutoSprint: &on}))

	require.NoError(t, m.SetConnectionIntent(v.ID, true))
	waitOnline(t, rec, v.ID, true)
	require.Eventually(t, func() bool {
		return conn.Last().ControlState(actor.ControlSprint)
	}, time.Second, 10*time.Millisecond)
}

func TestSetDescriptionCapsLength(t *testing.T) {
	m, _, rec := newTestManager(t, sim.DefaultWorld())

	v, _ := m.AddEntry("", "Alice", false)
	long := strings.Repeat("x", 300)
	require.NoError(t, m.SetDescription(v.ID, long))

	rec.mu.Lock()
	got := rec.descs[v.ID]
	rec.mu.Unlock()
	assert.Len(t, got, descriptionMax)
	views := m.Views()
	require.Len(t, views, 1)
	assert.Len(t, views[0].Description, descriptionMax)
}

func TestCommandsNoopWhileOffline(t *testing.T) {
	m, _, _ := newTestManager(t, sim.DefaultWorld())

	v, _ := m.AddEntry("", "Alice", false)

	require.NoError(t, m.Chat(v.ID, "hello"))
	require.NoError(t, m.Respawn(v.ID))
	require.NoError(t, m.JumpOnce(v.ID))
	require.NoError(t, m.ToggleSneak(v.ID))
	require.NoError(t, m.HoldSlot(v.ID, 3))
	require.NoError(t, m.SwapHands(v.ID))
	require.NoError(t, m.NavigateTo(v.ID, 1, 64, 1))
	require.NoError(t, m.StopNavigation(v.ID))
	require.NoError(t, m.RotateStep(v.ID, 0.1, 0.1))
	require.NoError(t, m.LookAngles(v.ID, 0, 0))
	require.NoError(t, m.LookAtPoint(v.ID, 0, 64, 0))
	require.NoError(t, m.SetActionMode(v.ID, scheduler.KeyMine, scheduler.ModeOnce, scheduler.Options{}))

	actions, err := m.ActiveActions(v.ID)
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestMoveAndLookCommands(t *testing.T) {
	m, conn, rec := newTestManager(t, sim.DefaultWorld())

	v, _ := m.AddEntry("", "Alice", true)
	waitOnline(t, rec, v.ID, true)
	act := conn.Last()

	require.NoError(t, m.SetContinuousMove(v.ID, "forward", true))
	assert.True(t, act.ControlState(actor.ControlForward))
	require.NoError(t, m.SetContinuousMove(v.ID, "forward", false))
	assert.False(t, act.ControlState(actor.ControlForward))
	require.Error(t, m.SetContinuousMove(v.ID, "up", true))

	require.NoError(t, m.LookAngles(v.ID, 1.0, 3.0)) // pitch beyond vertical
	st := act.State()
	assert.InDelta(t, 1.0, st.Yaw, 1e-9)
	assert.InDelta(t, math.Pi/2, st.Pitch, 1e-9)

	require.NoError(t, m.RotateStep(v.ID, 0.5, -1.0))
	st = act.State()
	assert.InDelta(t, 1.5, st.Yaw, 1e-9)

	require.NoError(t, m.NavigateTo(v.ID, 10, 64, 10))
	goal, opts := act.LastNavigate()
	assert.Equal(t, 10.0, goal.X)
	assert.False(t, opts.AllowBreaking, "terrain modification needs the tweak")
}

func TestHoldSlotAndUnequip(t *testing.T) {
	w := sim.DefaultWorld()
	w.Inventory.Slots[4] = &actor.Item{Name: "iron_sword", Count: 1}
	m, conn, rec := newTestManager(t, w)

	v, _ := m.AddEntry("", "Alice", true)
	waitOnline(t, rec, v.ID, true)
	act := conn.Last()

	require.NoError(t, m.HoldSlot(v.ID, 4))
	require.NotNil(t, act.HeldItem())
	assert.Equal(t, "iron_sword", act.HeldItem().Name)

	require.NoError(t, m.HoldSlot(v.ID, -1))
	assert.Nil(t, act.HeldItem())
}

func TestAutoRespawnAfterDeath(t *testing.T) {
	m, conn, rec := newTestManager(t, sim.DefaultWorld())

	v, _ := m.AddEntry("", "Alice", true)
	waitOnline(t, rec, v.ID, true)
	on := true
	require.NoError(t, m.SetTweaks(v.ID, TweaksPatch{AutoRespawn: &on}))

	act := conn.Last()
	act.Die()

	require.Eventually(t, func() bool {
		return act.CallCount("respawn") == 1
	}, 3*time.Second, 20*time.Millisecond)
	assert.True(t, rec.hasLog(v.ID, "died"))
}

func TestChatLinesReachDashboard(t *testing.T) {
	m, conn, rec := newTestManager(t, sim.DefaultWorld())

	v, _ := m.AddEntry("", "Alice", true)
	waitOnline(t, rec, v.ID, true)

	conn.Last().PushChat("<Steve> hi Alice")
	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.chats[v.ID]) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestEndToEndAliceScenario(t *testing.T) {
	w := sim.DefaultWorld()
	w.Entities = []actor.Entity{{
		ID: 1, Name: "zombie", Kind: "mob", Height: 1.8,
		// Dead ahead of the default zero aim.
		Position: actor.Vec3{X: 3, Y: 64 + actor.EyeHeight - 0.9, Z: 0},
	}}
	m, conn, rec := newTestManager(t, w)

	v, err := m.AddEntry("", "Alice", true)
	require.NoError(t, err)

	// The add is broadcast right away.
	first := rec.lastList()
	require.Len(t, first, 1)

	waitOnline(t, rec, v.ID, true)

	// Telemetry at the configured 1 Hz cadence.
	require.Eventually(t, func() bool {
		return rec.telemetryCount(v.ID) >= 2
	}, 4*time.Second, 50*time.Millisecond)

	require.NoError(t, m.SetActionMode(v.ID, scheduler.KeyAttack, scheduler.ModeContinuous, scheduler.Options{}))
	require.Eventually(t, func() bool {
		acts := rec.lastActions(v.ID)
		return len(acts) == 1 && acts[0].Key == scheduler.KeyAttack && acts[0].Mode == scheduler.ModeContinuous
	}, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return conn.Last().CallCount("attack") >= 1
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, m.SetActionMode(v.ID, scheduler.KeyAttack, scheduler.ModeStop, scheduler.Options{}))
	require.Eventually(t, func() bool {
		return len(rec.lastActions(v.ID)) == 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, m.RemoveEntry(v.ID))
	assert.Contains(t, rec.removedIDs(), v.ID)
	assert.Empty(t, rec.lastList())
}
