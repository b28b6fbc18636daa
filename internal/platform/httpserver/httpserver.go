package httpserver

import (
	"net/http"
	"time"
)

const (
	baseReadTimeout = 10 * time.Second
	// uploadRate is the slowest client upload we still wait for, in bytes
	// per second. A parish office on a poor link sits around this.
	uploadRate = 256 << 10
)

// New builds the HTTP server. Read and write deadlines grow with
// maxBodyBytes so the largest accepted statement upload can finish on a slow
// link; a non-positive size keeps the base deadlines.
func New(addr string, handler http.Handler, maxBodyBytes int64) *http.Server {
	read := ReadTimeout(maxBodyBytes)
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       read,
		WriteTimeout:      read + 30*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

// ReadTimeout is the request read deadline for bodies up to maxBodyBytes.
func ReadTimeout(maxBodyBytes int64) time.Duration {
	if maxBodyBytes <= 0 {
		return baseReadTimeout
	}
	secs := (maxBodyBytes + uploadRate - 1) / uploadRate
	return baseReadTimeout + time.Duration(secs)*time.Second
}
