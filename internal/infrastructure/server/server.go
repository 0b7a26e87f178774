package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/constructorio-go/internal/infrastructure/logging"
	"github.com/GriffinCanCode/constructorio-go/internal/queue"
	"github.com/GriffinCanCode/constructorio-go/internal/storage"
)

// Config configures the status server
type Config struct {
	Addr        string
	Development bool
	// AllowOrigins lists origins allowed to read the status endpoints
	AllowOrigins []string
}

// Server exposes health, metrics and the persisted backlog over HTTP
type Server struct {
	router *gin.Engine
	http   *http.Server
	logger *logging.Logger
}

// New creates a status server reading metrics from gatherer and the backlog
// from store
func New(cfg Config, gatherer prometheus.Gatherer, store storage.Store, logger *logging.Logger) *Server {
	logger = logging.Or(logger).Component("status")

	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Accept", "Origin", "Cache-Control"},
		MaxAge:       12 * time.Hour,
	}))

	started := time.Now()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(started).Round(time.Second).String(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.GET("/backlog", func(c *gin.Context) {
		entries := queue.Get(store)
		c.JSON(http.StatusOK, gin.H{
			"count":   len(entries),
			"entries": entries,
		})
	})

	return &Server{
		router: router,
		http:   &http.Server{Addr: cfg.Addr, Handler: router, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
	}
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting status server", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Failed to shut down status server", zap.Error(err))
		return err
	}
	return nil
}
