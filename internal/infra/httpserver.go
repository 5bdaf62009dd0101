package infra

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"
)

// HTTPServer wraps http.Server with graceful start and shutdown.
type HTTPServer struct {
	server *http.Server
}

// NewHTTPServer builds the API server. Server-level errors such as TLS
// handshake failures are written to logger.
func NewHTTPServer(cfg *Config, handler http.Handler, logger Logger) *HTTPServer {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ErrorLog:          log.New(logger.With().Str("component", "http_server").Logger(), "", 0),
	}
	return &HTTPServer{server: srv}
}

// Start blocks serving requests. A graceful shutdown is not an error.
func (s *HTTPServer) Start() error {
	if s.server == nil {
		return nil
	}
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
