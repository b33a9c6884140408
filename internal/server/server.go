package server

import (
	"context"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/chardev/chardevd/internal/api/http"
	"github.com/chardev/chardevd/internal/api/middleware"
	"github.com/chardev/chardevd/internal/device"
	"github.com/chardev/chardevd/internal/infrastructure/config"
	"github.com/chardev/chardevd/internal/infrastructure/logging"
	"github.com/chardev/chardevd/internal/infrastructure/monitoring"
	"github.com/chardev/chardevd/internal/queue"
	"github.com/chardev/chardevd/internal/ws"
)

// Server wires the queue, device adapter, and transport surfaces together.
// It owns the single process-wide queue: constructed here on startup,
// discarded with its pending messages on shutdown.
type Server struct {
	cfg    *config.Config
	log    *logging.Logger
	queue  *queue.Queue
	device *device.Device
	http   *http.Server
}

// New builds a fully wired server from configuration.
func New(cfg *config.Config, log *logging.Logger) *Server {
	metrics := monitoring.NewMetrics()

	q := queue.NewWithCapacity(cfg.Device.QueueCapacity)
	dev := device.New(q, log,
		device.WithMaxMessageSize(cfg.Device.MaxMessageSize),
		device.WithMetrics(metrics),
	)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(monitoring.Middleware(metrics))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.GlobalRateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.GlobalRequestsPerSecond,
			Burst:             cfg.RateLimit.GlobalBurst,
		}))
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(dev, log)
	wsHandler := ws.NewHandler(dev, log, metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.POST("/device/open", handlers.Open)
	router.DELETE("/device/handles/:handle", handlers.CloseHandle)
	router.POST("/device/write", handlers.Write)
	router.POST("/device/read", handlers.Read)
	router.POST("/device/ioctl", handlers.Ioctl)
	router.GET("/device/stats", handlers.Stats)

	router.GET("/stream", wsHandler.HandleConnection)

	return &Server{
		cfg:    cfg,
		log:    log,
		queue:  q,
		device: dev,
		http: &http.Server{
			Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
	}
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.log.Info("serving message device",
		zap.String("addr", s.http.Addr),
		zap.Int("queue_capacity", s.queue.Cap()),
		zap.Int("max_message_size", s.device.MaxMessageSize()),
	)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests.
// Pending queue messages are discarded with the process.
func (s *Server) Shutdown(ctx context.Context) error {
	if dropped := s.queue.Len(); dropped > 0 {
		s.log.Info("discarding pending messages", zap.Int("count", dropped))
	}
	return s.http.Shutdown(ctx)
}
