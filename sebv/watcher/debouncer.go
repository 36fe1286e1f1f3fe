package watcher

import (
	"time"
)

// Debouncer collects events until no new event arrived for delay, or until
// maxDelay passed since the first pending event. It is not safe for
// concurrent use; the watch loop owns it.
type Debouncer struct {
	delay    time.Duration
	maxDelay time.Duration

	pending []Event
	first   time.Time
	timer   *time.Timer
	armed   bool
}

func NewDebouncer(delay, maxDelay time.Duration) *Debouncer {
	if maxDelay < delay {
		maxDelay = delay
	}
	t := time.NewTimer(time.Hour)
	t.Stop()
	return &Debouncer{delay: delay, maxDelay: maxDelay, timer: t}
}

// Add queues event and re-arms the timer.
func (d *Debouncer) Add(event Event) {
	now := time.Now()
	if len(d.pending) == 0 {
		d.first = now
	}
	d.pending = append(d.pending, event)

	wait := d.delay
	if limit := d.first.Add(d.maxDelay).Sub(now); limit < wait {
		wait = max(limit, 0)
	}
	d.timer.Reset(wait)
	d.armed = true
}

// Ready fires when the pending batch is due. It is nil while nothing is
// pending, so selecting on it blocks.
func (d *Debouncer) Ready() <-chan time.Time {
	if !d.armed {
		return nil
	}
	return d.timer.C
}

// Flush returns and clears the pending batch.
func (d *Debouncer) Flush() []Event {
	batch := d.pending
	d.pending = nil
	d.first = time.Time{}
	d.timer.Stop()
	d.armed = false
	return batch
}

// Pending returns the number of queued events.
func (d *Debouncer) Pending() int {
	return len(d.pending)
}

// Stop releases the timer.
func (d *Debouncer) Stop() {
	d.timer.Stop()
	d.armed = false
}
