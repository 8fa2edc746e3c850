package client

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into a single trailing-edge call.
// A burst of events produced by one user action becomes one refetch.
type Debouncer struct {
	mu    sync.Mutex
	d     time.Duration
	fn    func()
	timer *time.Timer
	done  bool
}

// NewDebouncer creates a debouncer that calls fn once the triggers go quiet
// for d.
func NewDebouncer(d time.Duration, fn func()) *Debouncer {
	return &Debouncer{d: d, fn: fn}
}

// Trigger schedules (or reschedules) the trailing call.
func (db *Debouncer) Trigger() {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.done {
		return
	}
	if db.timer != nil {
		db.timer.Stop()
	}
	db.timer = time.AfterFunc(db.d, db.fn)
}

// Stop cancels any pending call and makes further triggers no-ops.
func (db *Debouncer) Stop() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.done = true
	if db.timer != nil {
		db.timer.Stop()
		db.timer = nil
	}
}
