// Package queue implements a bounded, mutex-guarded FIFO of byte messages.
//
// The queue is a circular array of fixed-size slots reserved at construction
// time, so the hot path never allocates slot storage and worst-case memory is
// bounded at capacity * MaxMessageSize. A single mutex serializes enqueue and
// dequeue; the critical section covers the index check, the byte copy, and the
// index update, nothing else.
//
// Backpressure is immediate: Enqueue on a full queue and Dequeue on an empty
// queue fail with sentinel errors rather than waiting. Retry policy belongs to
// the caller.
package queue
