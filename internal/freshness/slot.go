// internal/freshness/slot.go
package freshness

import "sync"

// Slot is a capacity-1 handoff: the latest pushed value wins.
// Safe for one producer and one consumer on different goroutines.
type Slot[T any] struct {
	mu          sync.Mutex
	value       T
	full        bool
	overwritten uint64
}

// New returns an empty slot.
func New[T any]() *Slot[T] {
	return &Slot[T]{}
}

// Push stores v, discarding any value not yet popped.
func (s *Slot[T]) Push(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.full {
		s.overwritten++
	}
	s.value = v
	s.full = true
}

// Pop removes and returns the held value. ok is false when the slot is empty.
func (s *Slot[T]) Pop() (v T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.full {
		return v, false
	}

	v = s.value
	var zero T
	s.value = zero
	s.full = false
	return v, true
}

// Len is 0 or 1.
func (s *Slot[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.full {
		return 1
	}
	return 0
}

// Overwritten counts values that were replaced before anyone popped them.
func (s *Slot[T]) Overwritten() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overwritten
}
