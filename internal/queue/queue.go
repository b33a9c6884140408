package queue

import (
	"errors"
	"sync"
)

// Contract limits for the device. Both are fixed; see the device adapter
// for where MaxMessageSize is enforced.
const (
	// MaxMessageSize is the largest message the queue will store, inclusive.
	MaxMessageSize = 4096

	// MaxQueueSize is the number of slots in the ring.
	MaxQueueSize = 1000
)

var (
	// ErrQueueFull is returned by Enqueue when all slots are occupied.
	ErrQueueFull = errors.New("queue full")

	// ErrQueueEmpty is returned by Dequeue when no message is pending.
	ErrQueueEmpty = errors.New("queue empty")
)

// slot holds one message in place. Storage is part of the ring array, so
// no allocation happens after New.
type slot struct {
	data [MaxMessageSize]byte
	len  int
}

// Queue is a bounded FIFO of byte messages backed by a pre-allocated ring.
//
// All operations are non-blocking: a full queue fails Enqueue and an empty
// queue fails Dequeue immediately. FIFO order is defined by the order in
// which operations acquire the internal lock.
type Queue struct {
	mu    sync.Mutex
	slots []slot
	front int // index of the oldest occupied slot
	back  int // index of the most recently filled slot
	count int
}

// New returns an empty queue with MaxQueueSize slots reserved up front.
func New() *Queue {
	return NewWithCapacity(MaxQueueSize)
}

// NewWithCapacity returns an empty queue with the given number of slots.
// Capacity must be positive; the device contract uses MaxQueueSize, smaller
// capacities exist for tests.
func NewWithCapacity(capacity int) *Queue {
	if capacity <= 0 {
		capacity = MaxQueueSize
	}
	return &Queue{
		slots: make([]slot, capacity),
		back:  capacity - 1, // first Enqueue advances to 0
	}
}

// Enqueue copies msg into the next free slot and makes it the logical tail.
// Returns ErrQueueFull without blocking when no slot is free. Messages longer
// than MaxMessageSize must be rejected by the caller before this point.
func (q *Queue) Enqueue(msg []byte) error {
	q.mu.Lock()
	if q.count == len(q.slots) {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.back = (q.back + 1) % len(q.slots)
	s := &q.slots[q.back]
	s.len = copy(s.data[:], msg)
	q.count++
	q.mu.Unlock()
	return nil
}

// Dequeue removes the oldest message and returns a copy owned by the caller.
// Returns ErrQueueEmpty without blocking when no message is pending.
func (q *Queue) Dequeue() ([]byte, error) {
	q.mu.Lock()
	if q.count == 0 {
		q.mu.Unlock()
		return nil, ErrQueueEmpty
	}
	s := &q.slots[q.front]
	out := make([]byte, s.len)
	copy(out, s.data[:s.len])
	q.front = (q.front + 1) % len(q.slots)
	q.count--
	q.mu.Unlock()
	return out, nil
}

// Len reports the number of messages currently stored.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap reports the slot capacity.
func (q *Queue) Cap() int {
	return len(q.slots)
}
