// Package scheduler runs the per-bot behavior state machine: one mode per
// behavior key, at most one live loop per key, last write wins. All actor
// calls made here are best-effort; failures are logged and the schedule
// keeps ticking.
package scheduler

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fakesalmon/minefleet/internal/actor"
)

type Key string

const (
	KeyAttack Key = "attack"
	KeyMine   Key = "mine"
	KeyPlace  Key = "place"
	KeyEat    Key = "eat"
	KeyDrop   Key = "drop"
	KeyJump   Key = "jump"
	KeySneak  Key = "sneak"
)

var allKeys = map[Key]bool{
	KeyAttack: true,
	KeyMine:   true,
	KeyPlace:  true,
	KeyEat:    true,
	KeyDrop:   true,
	KeyJump:   true,
	KeySneak:  true,
}

type Mode string

const (
	ModeStop       Mode = "Stop"
	ModeOnce       Mode = "Once"
	ModeInterval   Mode = "Interval"
	ModeContinuous Mode = "Continuous"
)

const (
	// TicksPerSecond converts game-tick periods to wall clock.
	TicksPerSecond = 20

	// DefaultIntervalTicks is the Interval period when the caller gives none.
	DefaultIntervalTicks = 10

	// attackToleranceDeg gates attack behavior: targets further off-axis
	// than this are never attacked, no matter how close they stand.
	attackToleranceDeg = 25.0

	// cursorReach bounds cursor-targeted mine/place.
	cursorReach = 5.0

	// maxEatHold forcibly ends a continuous consume so the actor is never
	// stuck mid-eat forever.
	maxEatHold = 30 * time.Second

	// sneakReassert re-applies the sneak control while Continuous sneak is
	// active; a single state-set has proven unreliable on flaky transports.
	sneakReassert = 2 * time.Second
)

// continuousCadence is the retry pace of each hold/repeat loop.
var continuousCadence = map[Key]time.Duration{
	KeyAttack: 300 * time.Millisecond,
	KeyMine:   400 * time.Millisecond,
	KeyPlace:  400 * time.Millisecond,
	KeyDrop:   250 * time.Millisecond,
}

// Options tune a SetMode call.
type Options struct {
	// IntervalTicks is the Interval-mode period in game ticks.
	IntervalTicks int
	// WholeStack makes drop behavior toss the full stack per invocation.
	WholeStack bool
}

// ActiveAction is one row of the dashboard's live indicator.
type ActiveAction struct {
	Key           Key  `json:"action"`
	Mode          Mode `json:"mode"`
	IntervalTicks int  `json:"intervalGt,omitempty"`
}

type actionState struct {
	mode          Mode
	intervalTicks int
	wholeStack    bool
	stop          chan struct{}
	stopOnce      sync.Once
	// done closes once the state's goroutine has finished, teardown writes
	// included. SetMode blocks on it before installing a replacement.
	done chan struct{}
}

func (st *actionState) cancel() {
	st.stopOnce.Do(func() {
		close(st.stop)
	})
}

func (st *actionState) stopped() bool {
	select {
	case <-st.stop:
		return true
	default:
		return false
	}
}

// Scheduler owns every behavior timer for one actor. Create one per spawn,
// StopAll on teardown; never reuse across connections.
type Scheduler struct {
	act      actor.Actor
	logger   *slog.Logger
	mu       sync.Mutex
	states   map[Key]*actionState
	onChange func([]ActiveAction)
	// notifyMu serializes change notifications so frames reach the
	// dashboard in state order.
	notifyMu sync.Mutex
}

func New(act actor.Actor, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		act:    act,
		logger: logger,
		states: make(map[Key]*actionState),
	}
}

// OnChange registers the live-indicator callback. Invoked after every state
// change, outside the scheduler lock.
func (s *Scheduler) OnChange(fn func([]ActiveAction)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// SetMode cancels whatever ran under key and installs the new mode.
// Guarantee: at most one live loop per key; two SetMode calls in a row
// always leave exactly the latest one running.
func (s *Scheduler) SetMode(key Key, mode Mode, opts Options) error {
	if !allKeys[key] {
		return fmt.Errorf("unknown behavior key %q", key)
	}
	switch mode {
	case ModeStop, ModeOnce, ModeInterval, ModeContinuous:
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}

	s.mu.Lock()
	if prev, ok := s.states[key]; ok {
		prev.cancel()
		delete(s.states, key)
		// Wait out the displaced loop's teardown so none of its writes
		// (control clears, item deactivation) can land after ours.
		<-prev.done
	}

	if mode == ModeStop {
		s.mu.Unlock()
		s.notify()
		return nil
	}

	ticks := opts.IntervalTicks
	if ticks <= 0 {
		ticks = DefaultIntervalTicks
	}
	st := &actionState{
		mode:          mode,
		intervalTicks: ticks,
		wholeStack:    opts.WholeStack,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	s.states[key] = st
	go s.run(key, st)
	s.mu.Unlock()
	s.notify()
	return nil
}

// run drives one installed state to completion and closes done once every
// teardown write has landed.
func (s *Scheduler) run(key Key, st *actionState) {
	switch st.mode {
	case ModeOnce:
		s.perform(key, st)
	case ModeInterval:
		s.intervalLoop(key, st, ticksToDuration(st.intervalTicks))
	case ModeContinuous:
		s.continuousLoop(key, st)
	}
	close(st.done)
	if st.mode == ModeContinuous && key == KeyEat {
		// A consume that force-ended on max hold leaves the schedule too.
		// No-op when the state was cancelled or replaced.
		s.stopFromLoop(key, st)
	}
}

// ListActive reports every key with a non-Stop mode, sorted by key. It is
// consistent with the most recent SetMode call the moment that call
// returns.
func (s *Scheduler) ListActive() []ActiveAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ActiveAction, 0, len(s.states))
	for key, st := range s.states {
		a := ActiveAction{Key: key, Mode: st.mode}
		if st.mode == ModeInterval {
			a.IntervalTicks = st.intervalTicks
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Busy reports whether any of the given keys is in Continuous mode. The
// anti-idle controller uses this to stay out of the user's way.
func (s *Scheduler) Busy(keys ...Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		if st, ok := s.states[key]; ok && st.mode == ModeContinuous {
			return true
		}
	}
	return false
}

// ActiveCount reports the number of installed states; zero after StopAll.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// StopAll cancels every key and waits for their teardown. Called on actor
// teardown; idempotent.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	doneChans := make([]chan struct{}, 0, len(s.states))
	for key, st := range s.states {
		st.cancel()
		delete(s.states, key)
		doneChans = append(doneChans, st.done)
	}
	s.mu.Unlock()
	for _, done := range doneChans {
		<-done
	}
	s.notify()
}

func (s *Scheduler) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(s.ListActive())
	}
}

// stopFromLoop removes key if st is still the installed state. Used when a
// loop ends itself (eat max-hold) rather than being replaced.
func (s *Scheduler) stopFromLoop(key Key, st *actionState) {
	s.mu.Lock()
	if cur, ok := s.states[key]; ok && cur == st {
		cur.cancel()
		delete(s.states, key)
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Scheduler) intervalLoop(key Key, st *actionState, period time.Duration) {
	s.perform(key, st)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-st.stop:
			return
		case <-ticker.C:
			if st.stopped() {
				return
			}
			s.perform(key, st)
		}
	}
}

func ticksToDuration(ticks int) time.Duration {
	return time.Duration(ticks) * time.Second / TicksPerSecond
}

// wait sleeps for d or until the state is cancelled; reports false on
// cancellation.
func (st *actionState) wait(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-st.stop:
		return false
	case <-t.C:
		return true
	}
}
