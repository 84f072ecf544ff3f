// Package httpserver builds http.Server instances with the timeouts every
// listener in the broker shares.
package httpserver

import (
	"net/http"
	"time"
)

// New returns an http.Server for the given address and handler.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
