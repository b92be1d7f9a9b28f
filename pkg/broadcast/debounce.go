package broadcast

import (
	"sync"
	"time"

	"github.com/luminoshop/cartsync/pkg/types"
)

// Debouncer coalesces rapid snapshot publishes into one trailing-edge emit
// per window, always carrying the most recent value. Rapid successive
// quantity edits therefore produce one broadcast, not one per click.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	emit    func(types.LocalCartSnapshot)
	timer   *time.Timer
	pending *types.LocalCartSnapshot
	stopped bool
}

// NewDebouncer wraps emit with a coalescing window. A non-positive window
// disables coalescing and emits inline.
func NewDebouncer(window time.Duration, emit func(types.LocalCartSnapshot)) *Debouncer {
	return &Debouncer{window: window, emit: emit}
}

// Publish schedules snap for emission, replacing any value already waiting.
func (d *Debouncer) Publish(snap types.LocalCartSnapshot) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.window <= 0 {
		d.mu.Unlock()
		d.emit(snap)
		return
	}
	d.pending = &snap
	if d.timer == nil {
		d.timer = time.AfterFunc(d.window, d.fire)
	}
	d.mu.Unlock()
}

// Flush emits any waiting value immediately.
func (d *Debouncer) Flush() {
	d.fire()
}

// Stop cancels any scheduled emit and drops the waiting value.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	snap := d.pending
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	stopped := d.stopped
	d.mu.Unlock()

	if snap == nil || stopped {
		return
	}
	d.emit(*snap)
}
