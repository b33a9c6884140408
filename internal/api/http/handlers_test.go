package http

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chardev/chardevd/internal/device"
	"github.com/chardev/chardevd/internal/infrastructure/logging"
	"github.com/chardev/chardevd/internal/queue"
)

func newTestRouter(q *queue.Queue) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandlers(device.New(q, logging.NewNop()), logging.NewNop())

	r := gin.New()
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.POST("/device/open", h.Open)
	r.DELETE("/device/handles/:handle", h.CloseHandle)
	r.POST("/device/write", h.Write)
	r.POST("/device/read", h.Read)
	r.POST("/device/ioctl", h.Ioctl)
	r.GET("/device/stats", h.Stats)
	return r
}

func do(r *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlers_WriteReadRoundTrip(t *testing.T) {
	r := newTestRouter(queue.New())

	w := do(r, http.MethodPost, "/device/write", []byte("Hello, World!"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"bytes_written":13`)

	w = do(r, http.MethodPost, "/device/read", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello, World!", w.Body.String())
}

func TestHandlers_ReadEmpty(t *testing.T) {
	r := newTestRouter(queue.New())

	w := do(r, http.MethodPost, "/device/read", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestHandlers_WriteTooLarge(t *testing.T) {
	r := newTestRouter(queue.New())

	w := do(r, http.MethodPost, "/device/write", bytes.Repeat([]byte("A"), queue.MaxMessageSize+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	// Boundary is inclusive.
	w = do(r, http.MethodPost, "/device/write", bytes.Repeat([]byte("A"), queue.MaxMessageSize))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandlers_WriteFull(t *testing.T) {
	r := newTestRouter(queue.NewWithCapacity(1))

	w := do(r, http.MethodPost, "/device/write", []byte("one"))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/device/write", []byte("two"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestHandlers_ReadTruncated(t *testing.T) {
	r := newTestRouter(queue.New())

	w := do(r, http.MethodPost, "/device/write", bytes.Repeat([]byte("B"), queue.MaxMessageSize))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/device/read", []byte(`{"limit":10}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, strings.Repeat("B", 10), w.Body.String())

	// Truncation consumed the message.
	w = do(r, http.MethodPost, "/device/read", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandlers_FIFOOrder(t *testing.T) {
	r := newTestRouter(queue.New())

	for _, msg := range []string{"first", "second", "third"} {
		w := do(r, http.MethodPost, "/device/write", []byte(msg))
		require.Equal(t, http.StatusOK, w.Code)
	}
	for _, want := range []string{"first", "second", "third"} {
		w := do(r, http.MethodPost, "/device/read", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, want, w.Body.String())
	}
}

// faultingRecorder models a client whose connection dies mid-transfer.
type faultingRecorder struct {
	*httptest.ResponseRecorder
}

func (f *faultingRecorder) Write([]byte) (int, error) {
	return 0, errors.New("client went away")
}

func TestHandlers_ReadTransferFaultConsumesMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d := device.New(queue.New(), logging.NewNop())
	h := NewHandlers(d, logging.NewNop())

	_, err := d.Write([]byte("doomed"))
	require.NoError(t, err)

	w := &faultingRecorder{httptest.NewRecorder()}
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/device/read", nil)
	h.Read(c)

	// No partial reads: the failed copy-out still consumed the message.
	assert.Equal(t, 0, d.Stats().Depth)
}

func TestHandlers_Ioctl(t *testing.T) {
	r := newTestRouter(queue.New())

	w := do(r, http.MethodPost, "/device/ioctl", []byte(`{"cmd":1}`))
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestHandlers_OpenClose(t *testing.T) {
	r := newTestRouter(queue.New())

	w := do(r, http.MethodPost, "/device/open", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Handle string `json:"handle"`
	}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Handle)

	w = do(r, http.MethodDelete, "/device/handles/"+resp.Handle, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodDelete, "/device/handles/"+resp.Handle, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlers_Stats(t *testing.T) {
	r := newTestRouter(queue.New())

	do(r, http.MethodPost, "/device/write", []byte("pending"))
	w := do(r, http.MethodGet, "/device/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats device.Stats
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Depth)
	assert.Equal(t, queue.MaxQueueSize, stats.Capacity)
	assert.Equal(t, queue.MaxMessageSize, stats.MaxMessageSize)
}
