// Package debounce settles a rapidly changing value after a quiet period.
package debounce

import (
	"sync"
	"time"
)

// Debouncer emits the most recent value passed to Set once no new value has
// arrived for the configured delay. Intermediate values are dropped.
//
// The emit callback runs on its own goroutine; it is never invoked
// concurrently with itself for values from the same Debouncer generation.
type Debouncer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	emit    func(T)
	timer   *time.Timer
	gen     uint64
	pending bool
	stopped bool
	settled T
}

// New returns a Debouncer that calls emit with each settled value.
func New[T any](delay time.Duration, emit func(T)) *Debouncer[T] {
	return &Debouncer[T]{
		delay: delay,
		emit:  emit,
	}
}

// Set records v and restarts the quiet period.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.pending = true
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen, v) })
}

func (d *Debouncer[T]) fire(gen uint64, v T) {
	d.mu.Lock()
	// A newer Set (or Cancel) raced with this timer: its value wins.
	if gen != d.gen || d.stopped {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.settled = v
	d.mu.Unlock()

	d.emit(v)
}

// Cancel drops a pending value without emitting it.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Pending reports whether a value is waiting for the quiet period to end.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Settled returns the last emitted value. It is updated in the same step that
// clears Pending, before emit runs.
func (d *Debouncer[T]) Settled() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settled
}

// Stop cancels any pending value and ignores all later calls to Set.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.gen++
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
}
