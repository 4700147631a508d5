// Package watch coalesces filesystem change bursts into single re-ingest
// triggers, the way an editor save produces several rapid write events for
// one logical edit.
package watch

import (
	"sync"
	"time"
)

// Debouncer coalesces a burst of Trigger calls arriving within window into
// a single signal on Output, emitted window after the last call.
type Debouncer struct {
	window  time.Duration
	mu      sync.Mutex
	timer   *time.Timer
	output  chan struct{}
	stopped bool
}

// NewDebouncer creates a debouncer that waits window after the most recent
// Trigger before emitting on Output.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window: window,
		output: make(chan struct{}, 1),
	}
}

// Trigger records a change and (re)schedules the flush timer.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	select {
	case d.output <- struct{}{}:
	default:
	}
}

// Output emits a value each time a burst of Trigger calls settles.
func (d *Debouncer) Output() <-chan struct{} {
	return d.output
}

// Stop stops the debouncer and releases its timer. Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
