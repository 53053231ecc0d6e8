package subsystems

import (
	"net/http"
	"time"
)

// HTTPConfiguration encapsulates the tracker's HTTP configuration, used by the sender and by
// components that fetch remote resources.
type HTTPConfiguration struct {
	// DefaultHeaders contains the basic headers that should be added to all HTTP requests, such
	// as User-Agent.
	DefaultHeaders http.Header

	// CreateHTTPClient is a function that returns a new HTTP client instance based on the
	// tracker's configuration.
	CreateHTTPClient func() *http.Client

	// RequestTimeout bounds a single hit delivery attempt.
	RequestTimeout time.Duration
}
