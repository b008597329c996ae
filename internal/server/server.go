// Package server manages the HTTP listener lifecycle, including graceful
// drain on SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// CleanupFunc releases one resource during shutdown.
type CleanupFunc func(ctx context.Context) error

type cleanup struct {
	name string
	fn   CleanupFunc
}

// Server wraps http.Server with signal handling and ordered cleanup.
type Server struct {
	http  *http.Server
	grace time.Duration
	log   *slog.Logger

	mu       sync.Mutex
	cleanups []cleanup
}

// New builds a Server listening on the given port.
func New(handler http.Handler, port int, readTimeout, writeTimeout, shutdownTimeout time.Duration, logger *slog.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		grace: shutdownTimeout,
		log:   logger,
	}
}

// OnShutdown registers a cleanup to run after the listener has drained.
// Cleanups run in reverse registration order, so dependencies registered
// first are released last.
func (s *Server) OnShutdown(name string, fn CleanupFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanups = append(s.cleanups, cleanup{name: name, fn: fn})
}

// Run serves until the process receives SIGINT or SIGTERM, then drains
// in-flight requests and runs the registered cleanups. It blocks for the
// lifetime of the server.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listenErr := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", s.http.Addr)
		listenErr <- s.http.ListenAndServe()
	}()

	select {
	case err := <-listenErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		stop()
		s.log.Info("shutdown signal received", "grace", s.grace)
	}

	return s.drain()
}

// drain stops the listener, waits for in-flight requests up to the grace
// period, then runs cleanups with whatever time remains.
func (s *Server) drain() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.grace)
	defer cancel()

	s.http.SetKeepAlivesEnabled(false)

	errs := make([]error, 0, len(s.cleanups)+1)
	if err := s.http.Shutdown(ctx); err != nil {
		s.log.Error("listener shutdown failed", "error", err)
		errs = append(errs, fmt.Errorf("shutdown listener: %w", err))
	} else {
		s.log.Info("listener drained")
	}

	s.mu.Lock()
	cleanups := s.cleanups
	s.cleanups = nil
	s.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		c := cleanups[i]
		start := time.Now()
		if err := c.fn(ctx); err != nil {
			s.log.Error("cleanup failed", "name", c.name, "error", err)
			errs = append(errs, fmt.Errorf("cleanup %s: %w", c.name, err))
			continue
		}
		s.log.Info("cleanup done", "name", c.name, "took", time.Since(start))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.log.Info("server stopped")
	return nil
}
