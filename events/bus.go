// Package events provides a small typed publish/subscribe bus used to fan out
// tracking-session events and reset signals to every live controller.
//
// Each subscriber owns a buffered channel. Publish delivers to every current
// subscriber in registration order and blocks on a full buffer until either
// the subscriber drains it, the subscriber unsubscribes, or the publishing
// context is done. Slow subscribers therefore apply backpressure instead of
// silently missing reset signals.
package events

import (
	"context"
	"sync"
)

// DefaultBuffer is the channel capacity used when Subscribe is given a
// non-positive size.
const DefaultBuffer = 16

type subscriber[T any] struct {
	ch   chan T
	done chan struct{}
}

// Bus is a fan-out channel broker for values of type T.
type Bus[T any] struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscriber[T]
	order  []uint64
	nextID uint64
	closed bool
}

// NewBus creates an empty bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[uint64]*subscriber[T])}
}

// Subscribe registers a new subscriber and returns its receive channel and an
// unsubscribe function. Unsubscribing closes the channel; calling it more than
// once is harmless. Subscribing to a closed bus returns a closed channel.
func (b *Bus[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	sub := &subscriber[T]{ch: make(chan T, buffer), done: make(chan struct{})}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			// done unblocks an in-flight Publish before the channel is closed.
			close(sub.done)
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				b.removeOrder(id)
				close(sub.ch)
			}
		})
	}
}

func (b *Bus[T]) removeOrder(id uint64) {
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			return
		}
	}
}

// Publish delivers v to every subscriber. It returns ctx.Err() if the context
// ends before all deliveries complete.
func (b *Bus[T]) Publish(ctx context.Context, v T) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	for _, id := range b.order {
		sub := b.subs[id]
		select {
		case sub.ch <- v:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Len reports the number of active subscribers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later publishes are dropped.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, id := range b.order {
		close(b.subs[id].ch)
	}
	b.subs = map[uint64]*subscriber[T]{}
	b.order = nil
}
