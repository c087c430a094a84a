// Package server is the preview HTTP server: it lists a run's emitted files
// and serves their bodies to a dev server or browser.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

type Server struct {
	http *http.Server
}

// New wraps handler for cleartext HTTP/2 so browsers behind a local proxy can
// multiplex the many asset requests a page makes.
func New(addr string, handler http.Handler) *Server {
	return &Server{http: &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}}
}

func (s *Server) Addr() string { return s.http.Addr }

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) Start() error {
	log.Printf("preview: listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Printf("preview: shutting down")
	return s.http.Shutdown(ctx)
}
