// Package httpserver builds the oracle's HTTP server. Quote issuance is a
// small-JSON-in, small-JSON-out workload, so the timeouts are deliberately
// tight: a client that cannot deliver an attestation bundle within seconds
// is holding a connection the rate limiter never saw.
package httpserver

import (
	"net/http"
	"time"
)

// New builds the server for the given handler.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
