package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chardev/chardevd/internal/device"
	"github.com/chardev/chardevd/internal/infrastructure/logging"
	"github.com/chardev/chardevd/internal/queue"
)

// Handlers binds the device adapter to HTTP endpoints.
type Handlers struct {
	device *device.Device
	log    *logging.Logger
}

// NewHandlers creates HTTP handlers over the device.
func NewHandlers(d *device.Device, log *logging.Logger) *Handlers {
	return &Handlers{device: d, log: log}
}

// Root returns service identification.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "chardevd",
		"status":  "running",
	})
}

// Health returns service health.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Open grants a device handle. Open never fails.
func (h *Handlers) Open(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"handle": string(h.device.Open())})
}

// CloseHandle releases a device handle.
func (h *Handlers) CloseHandle(c *gin.Context) {
	handle := device.Handle(c.Param("handle"))
	if err := h.device.Close(handle); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown handle"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": true})
}

// Write accepts the raw request body as one message.
//
// Status mapping mirrors the device contract: 413 for oversized messages,
// 503 with Retry-After for a full queue (resource busy), 400 for a transfer
// fault.
func (h *Handlers) Write(c *gin.Context) {
	var (
		n   int
		err error
	)
	if length := c.Request.ContentLength; length >= 0 {
		n, err = h.device.WriteFrom(c.Request.Body, int(length))
	} else {
		// Chunked request, length unknown up front. Read one byte past
		// the limit so oversize is still detectable.
		var body []byte
		body, err = io.ReadAll(io.LimitReader(c.Request.Body, int64(h.device.MaxMessageSize())+1))
		if err != nil {
			h.writeError(c, device.ErrDataTransferFault)
			return
		}
		n, err = h.device.Write(body)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bytes_written": n})
}

type readRequest struct {
	Limit int `json:"limit"`
}

// Read drains the oldest message, truncated to the requested limit, and
// returns it as the raw response body.
//
// An empty queue is "try again", not an error: 204 with Retry-After.
func (h *Handlers) Read(c *gin.Context) {
	req := readRequest{Limit: h.device.MaxMessageSize()}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid read request"})
			return
		}
	}

	c.Header("Content-Type", "application/octet-stream")
	if _, err := h.device.ReadTo(c.Writer, clampLimit(req.Limit, h.device.MaxMessageSize())); err != nil {
		c.Header("Content-Type", "")
		h.writeError(c, err)
	}
}

// Ioctl rejects all control requests.
func (h *Handlers) Ioctl(c *gin.Context) {
	_ = h.device.Ioctl(0, 0)
	c.JSON(http.StatusNotImplemented, gin.H{"error": "operation not supported"})
}

// Stats reports device state.
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.device.Stats())
}

func (h *Handlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, device.ErrMessageTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "message too large"})
	case errors.Is(err, queue.ErrQueueFull):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue full"})
	case errors.Is(err, queue.ErrQueueEmpty):
		c.Header("Retry-After", "1")
		c.Status(http.StatusNoContent)
	case errors.Is(err, device.ErrDataTransferFault):
		c.JSON(http.StatusBadRequest, gin.H{"error": "data transfer fault"})
	default:
		h.log.Error("unexpected device error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func clampLimit(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}
