package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/ksavkin/SwiftLabel/internal/api/http"
	"github.com/ksavkin/SwiftLabel/internal/api/middleware"
	"github.com/ksavkin/SwiftLabel/internal/api/ws"
	"github.com/ksavkin/SwiftLabel/internal/domain/session"
	"github.com/ksavkin/SwiftLabel/internal/infrastructure/config"
	"github.com/ksavkin/SwiftLabel/internal/infrastructure/logging"
	"github.com/ksavkin/SwiftLabel/internal/infrastructure/monitoring"
	"github.com/ksavkin/SwiftLabel/internal/providers/filesystem"
	"github.com/ksavkin/SwiftLabel/internal/providers/formats"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router  *gin.Engine
	srv     *http.Server
	engine  *session.Engine
	hub     *ws.Hub
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// New assembles the router, middleware, and routes around an initialized
// session engine.
func New(cfg *config.Config, engine *session.Engine, fs *filesystem.Ops, logger *logging.Logger) *Server {
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := monitoring.NewMetrics()
	hub := ws.NewHub(engine, metrics, logger)

	detector := formats.NewDetector(engine.WorkingDirectory())
	handlers := apihttp.NewHandlers(engine, fs, detector, hub, metrics, logger)
	wsHandler := ws.NewHandler(hub, engine, metrics, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		rl := middleware.DefaultRateLimitConfig()
		if cfg.RateLimit.RequestsPerSecond > 0 {
			rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		}
		if cfg.RateLimit.Burst > 0 {
			rl.Burst = cfg.RateLimit.Burst
		}
		router.Use(middleware.RateLimit(rl))
	}

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/session", handlers.GetSession)
		api.GET("/session/info", handlers.GetSessionInfo)
		api.POST("/session/clear", handlers.ClearSession)

		api.GET("/stats", handlers.GetStats)
		api.GET("/images", handlers.ListImages)
		api.GET("/images/*id", handlers.ServeImage)
		api.GET("/format", handlers.GetFormat)

		api.POST("/label", handlers.Label)
		api.POST("/delete", handlers.Delete)
		api.POST("/undo", handlers.Undo)

		api.GET("/changes/preview", handlers.PreviewChanges)
		api.POST("/changes/commit", handlers.CommitChanges)
		api.GET("/changes/count", handlers.CountChanges)
		api.GET("/changes/diff", handlers.DiffChanges)

		api.GET("/metrics", handlers.MetricsSummary)
	}

	router.GET("/ws", wsHandler.HandleConnection)

	return &Server{
		router:  router,
		engine:  engine,
		hub:     hub,
		metrics: metrics,
		logger:  logger,
	}
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Server listening", zap.String("addr", addr))
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
