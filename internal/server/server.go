// Package server wires the HTTP listener around the api router, with
// graceful shutdown driven by context cancellation (spec.md §6, §5).
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nekostore/neko-object/internal/api"
	"github.com/nekostore/neko-object/internal/logger"
)

// Server is the HTTP front door: chi router, timeouts from config, and a
// single graceful-shutdown path.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	shutdownOnce    sync.Once
}

// Config controls the listener. Port is the TCP port; IdleTimeout bounds
// idle keep-alive connections; ShutdownTimeout bounds how long Stop waits
// for in-flight requests (chunk uploads/downloads can run up to
// requestTimeout, so this should exceed it in production).
type Config struct {
	Port            int
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// New builds a Server around deps' router, not yet listening.
func New(cfg Config, deps api.Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:        fmt.Sprintf(":%d", cfg.Port),
			Handler:     api.NewRouter(deps),
			IdleTimeout: cfg.IdleTimeout,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Serve starts listening and blocks until ctx is cancelled or the server
// fails to start. On cancellation it drives a graceful shutdown bounded by
// shutdownTimeout and returns Stop's error, nil when shutdown completes.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("http server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}
}

// Stop gracefully shuts down the listener. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("http server shutdown error: %w", err)
			logger.Error("http server shutdown error", "error", err)
			return
		}
		logger.Info("http server stopped gracefully")
	})
	return shutdownErr
}
