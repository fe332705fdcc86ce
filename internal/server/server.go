package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"time"
)

// Server represents an HTTP server
type Server struct {
	srv     *http.Server
	tlsCert string
	tlsKey  string
}

// New creates a new server instance
func New(handler http.Handler, port, tlsCert, tlsKey string) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		tlsCert: tlsCert,
		tlsKey:  tlsKey,
	}
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Start serves in the background. The returned channel receives the error
// that stopped the server, if any other than a graceful shutdown.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)

	go func() {
		var err error
		if s.tlsCert != "" && s.tlsKey != "" {
			s.srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			err = s.srv.ListenAndServeTLS(s.tlsCert, s.tlsKey)
		} else {
			err = s.srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
