package intake

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jonesrussell/crawlsched/internal/intake/validate"
	"github.com/jonesrussell/crawlsched/internal/logger"
)

// Pinger checks external dependencies (the database) for /ready.
type Pinger func(ctx context.Context) error

// Server is the Intake API's HTTP server with graceful lifecycle management.
type Server struct {
	router *gin.Engine
	server *http.Server
	log    logger.Interface
	cfg    *Config
}

// NewServer builds the Intake API's gin.Engine and wraps it in an
// http.Server configured from cfg.
func NewServer(cfg *Config, log logger.Interface, svc *Service, ping Pinger) (*Server, error) {
	cfg.SetDefaults()

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := validate.RegisterURLString(v); err != nil {
			return nil, fmt.Errorf("register urlstring validator: %w", err)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(recoveryMiddleware(log))
	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware(log))
	router.Use(errorEnvelopeMiddleware())

	router.GET("/health", healthHandler())
	router.GET("/ready", readyHandler(ping))
	router.POST("/api/v1/crawler/schedule-urls", scheduleURLsHandler(svc))

	httpServer := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{router: router, server: httpServer, log: log, cfg: cfg}, nil
}

// Router exposes the underlying gin.Engine for tests.
func (s *Server) Router() *gin.Engine { return s.router }

// Start runs the HTTP server, blocking until it's shut down or errors.
func (s *Server) Start() error {
	s.log.Info("starting intake server", "address", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("intake server: %w", err)
	}
	return nil
}

// StartAsync runs Start in a goroutine, returning a channel that receives
// any server error.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully stops the server within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("intake server shutdown: %w", err)
	}
	s.log.Info("intake server stopped gracefully")
	return nil
}

// RunWithGracefulShutdown starts the server and blocks until SIGINT,
// SIGTERM, a server error, or ctx cancellation, then shuts down cleanly.
func (s *Server) RunWithGracefulShutdown(ctx context.Context) error {
	errCh := s.StartAsync()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		s.log.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.log.Info("context cancelled, shutting down")
	}

	//nolint:contextcheck // fresh context needed for shutdown when ctx is already cancelled
	return s.Shutdown(context.Background())
}
