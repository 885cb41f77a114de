// Package bus implements the per-target outcome broadcast channel: a
// single producer (the probe worker) fans out to many consumers (file
// reporter, metrics aggregator) without ever blocking the producer.
//
// No library in the corpus offers a broadcast-with-lag primitive (Go's
// channels are single-consumer, and nothing in go.mod pulls in a
// pub/sub package), so this is built directly on a mutex-guarded ring
// buffer per subscriber — the same shape as tokio's broadcast channel,
// expressed with the concurrency primitives Go actually has.
package bus

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Receive once the bus has been closed and
// the subscriber has drained every outcome published before closing.
var ErrClosed = errors.New("bus: closed")

// Lagged is returned by Receive, instead of a value, when the
// subscriber fell behind and the ring buffer had to overwrite N
// undelivered items to make room for new ones.
type Lagged struct {
	N int
}

func (l *Lagged) Error() string {
	return "bus: subscriber lagged"
}

// Bus is a single-producer, multi-consumer broadcast channel for
// values of type T, bounded to a fixed per-subscriber buffer.
type Bus[T any] struct {
	mu       sync.Mutex
	capacity int
	subs     map[*Subscription[T]]struct{}
	closed   bool
}

// New creates a Bus whose subscribers each buffer up to capacity
// undelivered items before the oldest is overwritten. capacity < 1 is
// treated as 1.
func New[T any](capacity int) *Bus[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Bus[T]{
		capacity: capacity,
		subs:     make(map[*Subscription[T]]struct{}),
	}
}

// Subscribe registers a new subscriber. Only outcomes published after
// Subscribe returns are visible to it.
func (b *Bus[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{
		bus:    b,
		buf:    make([]item[T], b.capacity),
		notify: make(chan struct{}, 1),
	}

	b.mu.Lock()
	if b.closed {
		sub.closed = true
	} else {
		b.subs[sub] = struct{}{}
	}
	b.mu.Unlock()

	return sub
}

// Publish fans v out to every current subscriber. It never blocks: a
// subscriber that hasn't drained its buffer has its oldest undelivered
// item overwritten, and is told so via a Lagged value on its next
// Receive.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for sub := range b.subs {
		sub.push(v)
	}
}

// Close ends the bus. Every subscriber observes end-of-stream (via
// ErrClosed) on its next Receive once its buffered items are drained.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.markClosed()
	}
	b.subs = nil
}

// Unsubscribe removes sub from the bus. Safe to call more than once.
func (b *Bus[T]) Unsubscribe(sub *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
}

type item[T any] struct {
	value T
}

// Subscription is one consumer's view of a Bus.
type Subscription[T any] struct {
	bus    *Bus[T]
	notify chan struct{}

	mu     sync.Mutex
	buf    []item[T]
	head   int
	count  int
	lagged int
	closed bool
}

func (s *Subscription[T]) push(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == len(s.buf) {
		// Buffer full: overwrite the oldest undelivered item.
		s.head = (s.head + 1) % len(s.buf)
		s.count--
		s.lagged++
	}
	idx := (s.head + s.count) % len(s.buf)
	s.buf[idx] = item[T]{value: v}
	s.count++

	s.wake()
}

func (s *Subscription[T]) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription[T]) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Receive blocks until an outcome is available, the subscription
// observes a lag, the bus is closed and drained, or ctx is done. A
// non-nil *Lagged error means a value was dropped before this point in
// the stream; the caller should call Receive again to get the next
// surviving value.
func (s *Subscription[T]) Receive(ctx context.Context) (T, error) {
	var zero T
	for {
		s.mu.Lock()
		if s.lagged > 0 {
			n := s.lagged
			s.lagged = 0
			s.mu.Unlock()
			return zero, &Lagged{N: n}
		}
		if s.count > 0 {
			it := s.buf[s.head]
			s.buf[s.head] = item[T]{}
			s.head = (s.head + 1) % len(s.buf)
			s.count--
			s.mu.Unlock()
			return it.value, nil
		}
		if s.closed {
			s.mu.Unlock()
			return zero, ErrClosed
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Unsubscribe removes this subscription from its bus. Any items
// already buffered can still be drained via Receive; once drained,
// Receive returns ErrClosed.
func (s *Subscription[T]) Unsubscribe() {
	s.bus.Unsubscribe(s)
	s.markClosed()
}
