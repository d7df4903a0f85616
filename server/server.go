// Package server is the HTTP/WebSocket front end over queue.Scheduler.
// Every handler is a thin translation from an HTTP request to a
// Scheduler call; no scheduling logic lives here, grounded on the
// teacher's server package's mux-and-dispatch shape (routing.go,
// handlers.go) and its broadcast.go WebSocket fanout, generalized from
// graph-update/log broadcasting to the Core API's Event stream.
package server

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cheapskatecoder/draconic/queue"
)

// Server wraps a queue.Scheduler with an HTTP+WebSocket surface.
type Server struct {
	scheduler      *queue.Scheduler
	logger         *zap.SugaredLogger
	allowedOrigins []string

	mux        *http.ServeMux
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Server. allowedOrigins configures CORS and WebSocket
// origin checking (server.allowed_origins in config.Config); an empty
// origin header is always allowed, matching the teacher's checkOrigin
// behavior for direct/non-browser clients.
func New(scheduler *queue.Scheduler, logger *zap.SugaredLogger, allowedOrigins []string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		scheduler:      scheduler,
		logger:         logger,
		allowedOrigins: allowedOrigins,
		mux:            http.NewServeMux(),
		ctx:            ctx,
		cancel:         cancel,
	}
	s.setupRoutes()
	return s
}

// Handler returns the root http.Handler, useful for tests via httptest.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on addr, blocking until it stops.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Infow("server: listening", "addr", addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting new connections, cancels all open WebSocket
// connections, and waits for their goroutines to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.wg.Wait()
	return err
}

// checkOrigin validates a WebSocket/CORS request's Origin header against
// the configured allow-list, prefix-matching the same way the teacher's
// checkOrigin does to tolerate an arbitrary port number.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.allowedOrigins {
		if strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}

// corsMiddleware adds CORS headers before delegating to next, mirroring
// the teacher's corsMiddleware.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.checkOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}
