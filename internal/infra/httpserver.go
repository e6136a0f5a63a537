package infra

import (
	"context"
	"net/http"
	"time"
)

// HTTPServer is the API's http.Server with the timeouts taken from
// Config, wrapped so cmd/api only deals with Start and Shutdown.
type HTTPServer struct {
	server *http.Server
}

// NewHTTPServer builds the server around the given handler.
func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	return &HTTPServer{server: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}}
}

// Addr returns the listen address.
func (s *HTTPServer) Addr() string {
	if s == nil || s.server == nil {
		return ""
	}
	return s.server.Addr
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *HTTPServer) Start() error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight
// requests up to the context deadline.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
