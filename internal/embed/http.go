package embed

import (
	"net/http"
	"time"
)

const (
	// DefaultPoolSize bounds idle HTTP connections kept per embedding host.
	DefaultPoolSize = 8
	// DefaultTimeout bounds a single embedding HTTP call.
	DefaultTimeout = 60 * time.Second
)

// newPooledClient builds an http.Client with a bounded, keep-alive
// transport, matching the connection-pool pattern every HTTP-based
// provider in this package uses.
func newPooledClient(poolSize int) *http.Client {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	transport := &http.Transport{
		MaxIdleConns:        poolSize,
		MaxIdleConnsPerHost: poolSize,
		MaxConnsPerHost:     poolSize * 2,
		IdleConnTimeout:     30 * time.Second,
	}
	return &http.Client{Transport: transport}
}
