// Package server constructs and starts the relay's HTTP listener, plain or
// TLS-wrapped.
package server

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// CreateServer creates and configures an HTTP server with the specified address and handler.
// A non-nil tlsConfig makes StartServer serve TLS.
func CreateServer(addr string, handler http.Handler, tlsConfig *tls.Config) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// StartServer starts the HTTP server and blocks until it stops. A clean
// shutdown returns nil.
func StartServer(server *http.Server) error {
	var err error
	if server.TLSConfig != nil {
		glog.Infof("Server listening with TLS on %s", server.Addr)
		err = server.ListenAndServeTLS("", "")
	} else {
		glog.Infof("Server listening on %s", server.Addr)
		err = server.ListenAndServe()
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.Wrap(err, "listen")
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting active connections.
// It waits for active connections to close or until the timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	glog.Info("Shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		glog.Errorf("HTTP server shutdown error: %v", err)
		return err
	}

	glog.Info("HTTP server shutdown completed")
	return nil
}
