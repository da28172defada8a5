// Package controller holds the autonomous per-bot policies: independent
// cyclic loops that act on the same actor as the user-driven scheduler.
// Each one starts and stops with its tweak toggle and leaves no timer
// behind when stopped.
package controller

import (
	"sync"
	"time"
)

// Controller is one startable/stoppable autonomous policy.
type Controller interface {
	Name() string
	Start()
	Stop()
	Running() bool
}

// base implements the start/stop/running plumbing shared by every
// controller: a stop channel per activation, closed exactly once.
type base struct {
	mu      sync.Mutex
	stop    chan struct{}
	running bool
}

// start launches run on its own goroutine, handing it the activation's
// stop channel. Reports false if already running.
func (b *base) start(run func(stop <-chan struct{})) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return false
	}
	b.running = true
	b.stop = make(chan struct{})
	go run(b.stop)
	return true
}

// Stop cancels the current activation. Safe to call repeatedly.
func (b *base) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return
	}
	b.running = false
	close(b.stop)
}

func (b *base) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// wait sleeps for d or until stop closes; reports false on stop.
func wait(stop <-chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-stop:
		return false
	case <-t.C:
		return true
	}
}
