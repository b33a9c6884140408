package device

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chardev/chardevd/internal/infrastructure/logging"
	"github.com/chardev/chardevd/internal/infrastructure/monitoring"
	"github.com/chardev/chardevd/internal/queue"
)

var (
	// ErrMessageTooLarge rejects writes longer than the device's maximum
	// message size. The queue is never called for oversized writes.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrDataTransferFault reports a failed copy across the device
	// boundary, independent of queue state.
	ErrDataTransferFault = errors.New("data transfer fault")

	// ErrUnsupported rejects ioctl requests; the device has no control
	// operations.
	ErrUnsupported = errors.New("operation not supported")

	// ErrBadHandle reports an unknown or already-closed device handle.
	ErrBadHandle = errors.New("bad device handle")
)

// Handle identifies one open of the device.
type Handle string

// Stats is a point-in-time snapshot of device state.
type Stats struct {
	Depth          int `json:"depth"`
	Capacity       int `json:"capacity"`
	MaxMessageSize int `json:"max_message_size"`
	OpenHandles    int `json:"open_handles"`
}

// Device binds the bounded message queue to the open/read/write/close/ioctl
// contract. All data crossing the boundary is copied; the queue never sees
// caller-owned memory.
type Device struct {
	queue   *queue.Queue
	maxSize int
	log     *logging.Logger
	metrics *monitoring.Metrics

	mu      sync.Mutex
	handles map[Handle]time.Time
}

// Option configures a Device.
type Option func(*Device)

// WithMaxMessageSize overrides the maximum accepted message size. Values
// outside (0, queue.MaxMessageSize] are ignored.
func WithMaxMessageSize(n int) Option {
	return func(d *Device) {
		if n > 0 && n <= queue.MaxMessageSize {
			d.maxSize = n
		}
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(d *Device) { d.metrics = m }
}

// New creates a device over q. The queue must outlive the device.
func New(q *queue.Queue, log *logging.Logger, opts ...Option) *Device {
	d := &Device{
		queue:   q,
		maxSize: queue.MaxMessageSize,
		log:     log,
		handles: make(map[Handle]time.Time),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open grants a new device handle. Open never fails.
func (d *Device) Open() Handle {
	h := Handle(uuid.NewString())
	d.mu.Lock()
	d.handles[h] = time.Now()
	d.mu.Unlock()
	d.log.Debug("device opened", zap.String("handle", string(h)))
	return h
}

// Close releases a handle granted by Open.
func (d *Device) Close(h Handle) error {
	d.mu.Lock()
	_, ok := d.handles[h]
	if ok {
		delete(d.handles, h)
	}
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("close %q: %w", h, ErrBadHandle)
	}
	d.log.Debug("device closed", zap.String("handle", string(h)))
	return nil
}

// Write enqueues one message. Oversized messages fail with ErrMessageTooLarge
// before the queue is touched; a full queue fails with queue.ErrQueueFull.
// On success the accepted byte count equals len(p).
func (d *Device) Write(p []byte) (int, error) {
	if len(p) > d.maxSize {
		d.record(func(m *monitoring.Metrics) {
			m.RecordEnqueue(monitoring.OutcomeTooLarge, 0, 0)
		})
		return 0, fmt.Errorf("write of %d bytes exceeds %d: %w", len(p), d.maxSize, ErrMessageTooLarge)
	}

	if err := d.queue.Enqueue(p); err != nil {
		d.record(func(m *monitoring.Metrics) {
			m.RecordEnqueue(monitoring.OutcomeFull, 0, 0)
		})
		return 0, err
	}
	d.record(func(m *monitoring.Metrics) {
		m.RecordEnqueue(monitoring.OutcomeOK, len(p), d.queue.Len())
	})
	return len(p), nil
}

// WriteFrom copies length bytes from src into device-owned memory, then
// enqueues them. A short or failed read is ErrDataTransferFault and leaves
// the queue unchanged.
func (d *Device) WriteFrom(src io.Reader, length int) (int, error) {
	if length < 0 {
		return 0, fmt.Errorf("negative length %d: %w", length, ErrDataTransferFault)
	}
	if length > d.maxSize {
		d.record(func(m *monitoring.Metrics) {
			m.RecordEnqueue(monitoring.OutcomeTooLarge, 0, 0)
		})
		return 0, fmt.Errorf("write of %d bytes exceeds %d: %w", length, d.maxSize, ErrMessageTooLarge)
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(src, buf); err != nil {
		d.record(func(m *monitoring.Metrics) {
			m.RecordEnqueue(monitoring.OutcomeFault, 0, 0)
		})
		return 0, fmt.Errorf("copy in: %v: %w", err, ErrDataTransferFault)
	}
	return d.Write(buf)
}

// Read dequeues the oldest message into p, truncating to len(p). The message
// is consumed whole: truncated bytes are discarded, not re-queued. An empty
// queue fails with queue.ErrQueueEmpty.
func (d *Device) Read(p []byte) (int, error) {
	msg, err := d.queue.Dequeue()
	if err != nil {
		d.record(func(m *monitoring.Metrics) {
			m.RecordDequeue(monitoring.OutcomeEmpty, 0)
		})
		return 0, err
	}
	d.record(func(m *monitoring.Metrics) {
		m.RecordDequeue(monitoring.OutcomeOK, d.queue.Len())
	})
	return copy(p, msg), nil
}

// ReadTo dequeues the oldest message and copies at most limit bytes to dst.
// A failed copy is ErrDataTransferFault; the message is consumed either way,
// matching the no-partial-reads contract.
func (d *Device) ReadTo(dst io.Writer, limit int) (int, error) {
	if limit < 0 || limit > d.maxSize {
		limit = d.maxSize
	}
	buf := make([]byte, limit)
	n, err := d.Read(buf)
	if err != nil {
		return 0, err
	}
	if _, werr := dst.Write(buf[:n]); werr != nil {
		d.record(func(m *monitoring.Metrics) {
			m.RecordDequeue(monitoring.OutcomeFault, 0)
		})
		return 0, fmt.Errorf("copy out: %v: %w", werr, ErrDataTransferFault)
	}
	return n, nil
}

// Ioctl rejects every control request.
func (d *Device) Ioctl(cmd uint32, arg uint64) error {
	d.log.Warn("unsupported ioctl", zap.Uint32("cmd", cmd), zap.Uint64("arg", arg))
	return ErrUnsupported
}

// Stats reports current device state.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	open := len(d.handles)
	d.mu.Unlock()
	return Stats{
		Depth:          d.queue.Len(),
		Capacity:       d.queue.Cap(),
		MaxMessageSize: d.maxSize,
		OpenHandles:    open,
	}
}

// MaxMessageSize reports the largest accepted write.
func (d *Device) MaxMessageSize() int {
	return d.maxSize
}

func (d *Device) record(fn func(*monitoring.Metrics)) {
	if d.metrics != nil {
		fn(d.metrics)
	}
}
