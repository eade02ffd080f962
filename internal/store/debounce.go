package store

import (
	"context"
	"sync"
	"time"

	"nexus/internal/types"
)

// DefaultDebounce is how long edits settle before they are autosaved.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer coalesces bursts of edits into one autosave of the latest
// configuration. Errors are reported through OnError.
type Debouncer struct {
	store   *Store
	delay   time.Duration
	OnError func(error)

	mu      sync.Mutex
	timer   *time.Timer
	pending *types.ReportParameters
	// epoch is bumped by Cancel; a write taken under an older epoch is dropped.
	epoch uint64

	// write is held across the backend write so Cancel can wait it out.
	write sync.Mutex
}

func NewDebouncer(s *Store, delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{store: s, delay: delay}
}

// Schedule replaces any pending value with p and restarts the timer.
func (d *Debouncer) Schedule(p types.ReportParameters) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := p.Clone()
	d.pending = &cp
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { _ = d.Flush(context.Background()) })
}

// Flush writes the pending value now, if there is one.
func (d *Debouncer) Flush(ctx context.Context) error {
	d.mu.Lock()
	p, epoch := d.pending, d.epoch
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	if p == nil {
		return nil
	}

	d.write.Lock()
	d.mu.Lock()
	stale := d.epoch != epoch
	d.mu.Unlock()
	var err error
	if !stale {
		err = d.store.Autosave(ctx, *p)
	}
	d.write.Unlock()

	if err != nil && d.OnError != nil {
		d.OnError(err)
	}
	return err
}

// Cancel drops the pending value without writing it. A write already in
// progress is allowed to finish before Cancel returns, so a caller that
// clears the slot afterwards always has the last word.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.epoch++
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.write.Lock()
	// wait for an in-flight write
	d.write.Unlock()
}

// Pending reports whether an autosave is waiting.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
