// Package server runs the status API.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	defaultPort       = "8080"
	maxHeaderBytes    = 1 << 20 // 1 MB
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

// Server owns the *http.Server of the status API. It is built before Run so
// that Shutdown can be called from another goroutine at any time.
type Server struct {
	httpServer *http.Server
}

func New(port string, handler http.Handler) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              listenAddr(port),
		Handler:           handler,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}}
}

// listenAddr accepts "8080", ":8080" or "127.0.0.1:8080".
func listenAddr(port string) string {
	port = strings.TrimSpace(port)
	switch {
	case port == "":
		return ":" + defaultPort
	case strings.Contains(port, ":"):
		return port
	default:
		return ":" + port
	}
}

func (s *Server) Addr() string { return s.httpServer.Addr }

// Run serves until Shutdown. It returns nil once Shutdown has been called.
func (s *Server) Run() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown lets in-flight requests complete. Hijacked websocket connections
// are not tracked by net/http; handlers.Handler.Close ends those.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
