// Package device adapts the bounded message queue to a character-device style
// contract: open grants a handle, write accepts one message, read drains one
// message (truncated to the caller's buffer), ioctl is always rejected.
//
// The adapter owns boundary validation and data movement. Oversized writes are
// rejected before the queue is called; transfer failures are reported as
// ErrDataTransferFault, distinct from queue state errors. Full-queue and
// empty-queue conditions surface as queue.ErrQueueFull and queue.ErrQueueEmpty
// unchanged, immediate and non-blocking.
package device
