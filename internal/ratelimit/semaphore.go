package ratelimit

import (
	"context"
	"fmt"
)

// Semaphore caps the number of simultaneously in-flight operations
// against one external service. Slots are represented by a buffered
// channel so waiters park on the runtime scheduler rather than spinning.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore builds a semaphore with max slots. max must be at least 1.
func NewSemaphore(max int) (*Semaphore, error) {
	if max < 1 {
		return nil, fmt.Errorf("ratelimit: max concurrent must be >= 1, got %d", max)
	}
	return &Semaphore{slots: make(chan struct{}, max)}, nil
}

// Acquire blocks until a slot is free or ctx ends.
func (s *Semaphore) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire grabs a slot without blocking. It returns false when all
// slots are held.
func (s *Semaphore) TryAcquire() bool {
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees a slot. Every Acquire must be paired with exactly one
// Release on all exit paths, including failure.
func (s *Semaphore) Release() {
	select {
	case <-s.slots:
	default:
		panic("ratelimit: semaphore release without acquire")
	}
}

// Active reports the number of currently held slots.
func (s *Semaphore) Active() int {
	return len(s.slots)
}

// Available reports the number of free slots.
func (s *Semaphore) Available() int {
	return cap(s.slots) - len(s.slots)
}
