package app

import (
	"sync"
	"time"
)

// CountdownTimer is the single-question countdown. Reset starts a fresh
// countdown and cancels any pending timeout callback; the handler fires at
// most once per countdown. A generation counter drops firings from stale
// time.AfterFunc timers that raced with a Reset.
type CountdownTimer struct {
	mu        sync.Mutex
	gen       int
	timer     *time.Timer
	onTimeout func()
}

func NewCountdownTimer(onTimeout func()) *CountdownTimer {
	return &CountdownTimer{onTimeout: onTimeout}
}

// Reset cancels the running countdown, if any, and starts a new one.
func (t *CountdownTimer) Reset(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	gen := t.gen
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		if gen != t.gen {
			t.mu.Unlock()
			return
		}
		t.gen++ // consume this countdown; a second firing is impossible
		t.mu.Unlock()
		t.onTimeout()
	})
}

// Cancel stops the countdown without firing the handler.
func (t *CountdownTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
