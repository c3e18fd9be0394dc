package store

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by Update/Delete when the record no longer exists.
var ErrNotFound = errors.New("record not found")

type (
	// Snapshot is one push delivery: either the full current record set or an
	// error notification. Errors do not terminate the subscription; they are
	// surfaced to the user as a loss of live data.
	Snapshot[T any] struct {
		Records []T
		Err     error
	}

	// Subscription is a disposable handle on a live feed. Close detaches it
	// from the hub; switching users must Close the old handle before
	// acquiring a new one so a stale callback can never leak another user's
	// data into the view.
	Subscription[T any] struct {
		ch      chan Snapshot[T]
		hub     *Hub[T]
		once    sync.Once
		ownerID string
	}

	// Hub fans snapshots out to the active subscriptions of one collection.
	// Delivery is latest-wins: a slow consumer sees the newest snapshot, not
	// every intermediate one.
	Hub[T any] struct {
		mu   sync.Mutex
		subs map[*Subscription[T]]struct{}
	}
)

func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[*Subscription[T]]struct{})}
}

// Subscribe attaches a new handle scoped to ownerID. The caller owns the
// handle and must Close it.
func (h *Hub[T]) Subscribe(ownerID string) *Subscription[T] {
	sub := &Subscription[T]{
		ch:      make(chan Snapshot[T], 1),
		hub:     h,
		ownerID: ownerID,
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Publish delivers a snapshot to every subscription for ownerID. If a
// subscriber has not drained the previous snapshot it is replaced.
func (h *Hub[T]) Publish(ownerID string, snap Snapshot[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		if sub.ownerID != ownerID {
			continue
		}
		select {
		case sub.ch <- snap:
		default:
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- snap
		}
	}
}

// PublishError delivers an error notification to ownerID's subscriptions.
func (h *Hub[T]) PublishError(ownerID string, err error) {
	h.Publish(ownerID, Snapshot[T]{Err: err})
}

// Active reports how many subscriptions are attached.
func (h *Hub[T]) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Snapshots is the receive side of the feed.
func (s *Subscription[T]) Snapshots() <-chan Snapshot[T] {
	return s.ch
}

// OwnerID returns the owner this subscription was acquired for.
func (s *Subscription[T]) OwnerID() string {
	return s.ownerID
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription[T]) Close() error {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
		close(s.ch)
	})
	return nil
}
