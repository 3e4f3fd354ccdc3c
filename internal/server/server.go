// Package server exposes validation, quality checks, archive audits and
// preview generation over HTTP, and streams preview events over a
// websocket.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/origolabs/origo/internal/logging"
	"github.com/origolabs/origo/internal/services"
)

// multipartOverhead is allowed on top of the archive limit for form
// boundaries and headers.
const multipartOverhead = 64 << 10

// Server is the Origo HTTP API.
type Server struct {
	svc      *services.Services
	hub      *Hub
	logger   logging.Logger
	security *SecurityConfig
	handler  http.Handler

	serverMutex  sync.Mutex
	httpServer   *http.Server
	shutdownOnce sync.Once
}

// New builds the server. hub may be nil, in which case /ws is served by a
// hub that receives no events.
func New(svc *services.Services, hub *Hub) *Server {
	logger := svc.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	origins := svc.Config.Server.AllowedOrigins
	if hub == nil {
		hub = NewHub(origins, logger, svc.Metrics)
	}

	s := &Server{
		svc:      svc,
		hub:      hub,
		logger:   logger.WithComponent("server"),
		security: DefaultSecurityConfig(origins),
	}
	s.handler = s.routes()

	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /validate", s.handleValidate)
	mux.HandleFunc("POST /consistency-check", s.handleConsistency)
	mux.HandleFunc("POST /performance-check", s.handlePerformance)
	mux.HandleFunc("POST /quality/{name}", s.handleQuality)
	mux.HandleFunc("POST /validate/zip", s.handleValidateZip)
	mux.HandleFunc("POST /preview/{project_id}", s.handlePreview)
	mux.HandleFunc("GET /previews/{project_id}", s.handleGetPreview)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.svc.Metrics.Handler())
	mux.Handle("GET /ws", s.hub)

	limit := s.svc.Config.Preview.MaxArchiveBytes + multipartOverhead

	var h http.Handler = mux
	h = maxBodyMiddleware(limit)(h)
	h = SecurityMiddleware(s.security)(h)
	h = s.observeMiddleware(h)
	h = requestIDMiddleware(h)
	h = s.recoverMiddleware(h)

	return h
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.svc.Config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.svc.Config.Server.Addr(), err)
	}

	return s.Serve(ctx, ln)
}

// Serve serves on ln until Shutdown is called or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.serverMutex.Lock()
	s.httpServer = srv
	s.serverMutex.Unlock()

	s.logger.Info(ctx, "server listening", "addr", ln.Addr().String())

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, err, "shutdown failed")
		}
	})
	defer stop()

	if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown closes websocket subscribers and gracefully stops the HTTP
// server. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "shutting down server")
		s.hub.Close()

		s.serverMutex.Lock()
		srv := s.httpServer
		s.serverMutex.Unlock()

		if srv != nil {
			shutdownErr = srv.Shutdown(ctx)
		}
	})

	return shutdownErr
}
