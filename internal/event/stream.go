// Package event provides a small in-process broadcast stream. Mutation
// results and catalog updates fan out through it so the components that react
// (cart badge, product grid) stay decoupled from the components that act.
package event

import "sync"

// CartChange announces a successful add-to-cart. Fire-and-forget: consumers
// that care about the exact count re-fetch the cart themselves.
type CartChange struct {
	UserID    int64
	ProductID int64
	Quantity  int
}

// Stream is a broadcast channel fan-out. Publish never blocks: a subscriber
// that has fallen behind its buffer misses the event.
type Stream[T any] struct {
	mu   sync.Mutex
	subs map[int]chan T
	next int
	size int
}

// NewStream creates a Stream whose subscriber channels buffer size events.
func NewStream[T any](size int) *Stream[T] {
	if size < 1 {
		size = 1
	}
	return &Stream[T]{subs: make(map[int]chan T), size: size}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called when the subscriber goes away; it closes the channel.
func (s *Stream[T]) Subscribe() (<-chan T, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	ch := make(chan T, s.size)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Publish broadcasts v to all current subscribers without blocking.
func (s *Stream[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- v:
		default:
		}
	}
}
