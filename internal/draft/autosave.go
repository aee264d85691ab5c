package draft

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/evcraddock/offer-form/internal/metrics"
	"github.com/evcraddock/offer-form/internal/offer"
)

// DefaultDebounce is the quiet period before a change burst is saved.
const DefaultDebounce = 3 * time.Second

const saveTimeout = 5 * time.Second

// Autosaver debounces saves of one draft. Each Schedule restarts the timer,
// so a burst of changes produces a single save of the latest record.
// Save failures are logged and never reported to the caller.
type Autosaver struct {
	store Store
	id    string
	delay time.Duration
	now   func() time.Time

	// saving is held across each store write and is always taken before mu.
	saving sync.Mutex

	mu      sync.Mutex
	timer   *time.Timer
	pending *offer.Record
	gen     uint64
	stopped bool
	savedAt time.Time
}

// NewAutosaver creates an autosaver for draft id. A non-positive delay uses
// DefaultDebounce.
func NewAutosaver(store Store, id string, delay time.Duration) *Autosaver {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Autosaver{store: store, id: id, delay: delay, now: time.Now}
}

// Schedule queues r to be saved after the debounce delay, replacing any
// record already waiting.
func (a *Autosaver) Schedule(r offer.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}

	rec := r.Clone()
	a.pending = &rec
	if a.timer != nil {
		a.timer.Stop()
	}
	a.gen++
	gen := a.gen
	a.timer = time.AfterFunc(a.delay, func() { a.fire(gen) })
}

// fire saves the pending record unless a later Schedule, Flush or Stop
// superseded the timer that called it.
func (a *Autosaver) fire(gen uint64) {
	a.saving.Lock()
	defer a.saving.Unlock()

	a.mu.Lock()
	if a.stopped || gen != a.gen || a.pending == nil {
		a.mu.Unlock()
		return
	}
	rec := *a.pending
	a.pending = nil
	a.timer = nil
	a.mu.Unlock()

	a.save(rec)
}

// Flush saves the pending record now, if there is one.
func (a *Autosaver) Flush() {
	a.saving.Lock()
	defer a.saving.Unlock()

	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
	rec := a.pending
	a.pending = nil
	stopped := a.stopped
	a.mu.Unlock()

	if rec != nil && !stopped {
		a.save(*rec)
	}
}

// Stop cancels any pending save and waits for a save already in progress
// to finish. Later calls to Schedule are ignored.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	a.stopped = true
	a.pending = nil
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()

	// A save that passed the stopped check before it was set still holds
	// saving; wait it out.
	a.saving.Lock()
	a.saving.Unlock()
}

// Pending reports whether a save is waiting on the timer.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

// SavedAt returns when the draft was last saved, or the zero time.
func (a *Autosaver) SavedAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.savedAt
}

func (a *Autosaver) save(r offer.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	now := a.now()
	if err := a.store.Save(ctx, a.id, Snapshot{Record: r, SavedAt: now}); err != nil {
		metrics.DraftSaves.WithLabelValues("error").Inc()
		zap.L().Warn("autosave failed", zap.String("draft", a.id), zap.Error(err))
		return
	}

	metrics.DraftSaves.WithLabelValues("ok").Inc()
	a.mu.Lock()
	a.savedAt = now
	a.mu.Unlock()
	zap.L().Debug("draft saved", zap.String("draft", a.id))
}
