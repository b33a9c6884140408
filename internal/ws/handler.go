package ws

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chardev/chardevd/internal/device"
	"github.com/chardev/chardevd/internal/infrastructure/logging"
	"github.com/chardev/chardevd/internal/infrastructure/monitoring"
	"github.com/chardev/chardevd/internal/queue"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // same policy as the REST surface
	},
}

// Error codes carried in error frames. These mirror the device error
// taxonomy one to one.
const (
	CodeQueueFull       = "queue_full"
	CodeQueueEmpty      = "queue_empty"
	CodeMessageTooLarge = "message_too_large"
	CodeTransferFault   = "transfer_fault"
	CodeUnsupported     = "unsupported"
	CodeBadFrame        = "bad_frame"
)

// Frame is one client request on a device session. Data is base64 on the
// wire, so arbitrary binary payloads survive the JSON framing.
type Frame struct {
	Type  string `json:"type"`
	Data  []byte `json:"data,omitempty"`
	Limit int    `json:"limit,omitempty"`
	Cmd   uint32 `json:"cmd,omitempty"`
}

// Handler manages WebSocket device sessions.
type Handler struct {
	device  *device.Device
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a WebSocket handler over the device.
func NewHandler(d *device.Device, log *logging.Logger, m *monitoring.Metrics) *Handler {
	return &Handler{device: d, log: log, metrics: m}
}

// HandleConnection upgrades the request and runs one device session. The
// session holds a device handle for its lifetime; the handle is released when
// the connection closes.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
		defer h.metrics.WSConnections.Dec()
	}

	handle := h.device.Open()
	defer func() {
		if err := h.device.Close(handle); err != nil {
			h.log.Warn("handle close failed", zap.Error(err))
		}
	}()

	h.send(conn, map[string]any{
		"type":   "system",
		"handle": string(handle),
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var frame Frame
		if err := sonic.Unmarshal(raw, &frame); err != nil {
			h.sendError(conn, CodeBadFrame)
			continue
		}

		switch frame.Type {
		case "write":
			h.handleWrite(conn, frame)
		case "read":
			h.handleRead(conn, frame)
		case "ioctl":
			_ = h.device.Ioctl(frame.Cmd, 0)
			h.sendError(conn, CodeUnsupported)
		case "ping":
			h.send(conn, map[string]any{"type": "pong"})
		default:
			h.sendError(conn, CodeBadFrame)
		}
	}
}

func (h *Handler) handleWrite(conn *websocket.Conn, frame Frame) {
	n, err := h.device.Write(frame.Data)
	if err != nil {
		h.sendError(conn, errorCode(err))
		return
	}
	h.send(conn, map[string]any{
		"type":  "written",
		"bytes": n,
	})
}

func (h *Handler) handleRead(conn *websocket.Conn, frame Frame) {
	limit := frame.Limit
	if limit <= 0 || limit > h.device.MaxMessageSize() {
		limit = h.device.MaxMessageSize()
	}
	buf := make([]byte, limit)
	n, err := h.device.Read(buf)
	if err != nil {
		h.sendError(conn, errorCode(err))
		return
	}
	h.send(conn, map[string]any{
		"type":  "message",
		"data":  buf[:n],
		"bytes": n,
	})
}

func (h *Handler) send(conn *websocket.Conn, payload map[string]any) {
	raw, err := sonic.Marshal(payload)
	if err != nil {
		h.log.Error("frame encode failed", zap.Error(err))
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		h.log.Debug("websocket write failed", zap.Error(err))
	}
}

func (h *Handler) sendError(conn *websocket.Conn, code string) {
	h.send(conn, map[string]any{
		"type": "error",
		"code": code,
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, queue.ErrQueueFull):
		return CodeQueueFull
	case errors.Is(err, queue.ErrQueueEmpty):
		return CodeQueueEmpty
	case errors.Is(err, device.ErrMessageTooLarge):
		return CodeMessageTooLarge
	case errors.Is(err, device.ErrDataTransferFault):
		return CodeTransferFault
	case errors.Is(err, device.ErrUnsupported):
		return CodeUnsupported
	default:
		return "internal"
	}
}
