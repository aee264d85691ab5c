// Package live pushes snapshots of the agent roster, logo list and settings
// document to subscribers as they change.
package live

import (
	"sync"

	"github.com/evcraddock/offer-form/internal/metrics"
)

// Feed holds the latest snapshot of a stream and fans it out to
// subscribers. A slow subscriber only ever sees the most recent snapshot.
type Feed[T any] struct {
	name string

	mu      sync.Mutex
	current T
	subs    map[*Subscription[T]]struct{}
}

// NewFeed creates a feed whose first snapshot is initial.
func NewFeed[T any](name string, initial T) *Feed[T] {
	return &Feed[T]{
		name:    name,
		current: initial,
		subs:    make(map[*Subscription[T]]struct{}),
	}
}

// Name returns the stream name.
func (f *Feed[T]) Name() string {
	return f.name
}

// Current returns the latest snapshot.
func (f *Feed[T]) Current() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Publish replaces the snapshot and delivers it to every subscriber.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.current = v
	for s := range f.subs {
		s.offer(v)
	}
}

// Subscribe returns a subscription whose channel yields the current
// snapshot first. Callers must call Unsubscribe when done.
func (f *Feed[T]) Subscribe() *Subscription[T] {
	s := &Subscription[T]{
		feed: f,
		ch:   make(chan T, 1),
	}

	f.mu.Lock()
	f.subs[s] = struct{}{}
	s.offer(f.current)
	n := len(f.subs)
	f.mu.Unlock()

	metrics.LiveSubscribers.WithLabelValues(f.name).Set(float64(n))
	return s
}

// Subscribers returns the number of open subscriptions.
func (f *Feed[T]) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Feed[T]) remove(s *Subscription[T]) {
	f.mu.Lock()
	delete(f.subs, s)
	close(s.ch)
	n := len(f.subs)
	f.mu.Unlock()

	metrics.LiveSubscribers.WithLabelValues(f.name).Set(float64(n))
}

// Subscription is a handle on a feed.
type Subscription[T any] struct {
	feed *Feed[T]
	ch   chan T
	once sync.Once
}

// C yields snapshots. It is closed by Unsubscribe.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Unsubscribe detaches the subscription and closes its channel. It is safe
// to call more than once.
func (s *Subscription[T]) Unsubscribe() {
	s.once.Do(func() { s.feed.remove(s) })
}

// offer replaces any undelivered snapshot with v. Called with feed.mu held.
func (s *Subscription[T]) offer(v T) {
	select {
	case <-s.ch:
	default:
	}
	s.ch <- v
}
