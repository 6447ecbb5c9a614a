package api

import "time"

const (
	// DefaultTimeout bounds a single request when the caller supplies no http.Client.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response is read for its message.
	maxErrorBody = 64 << 10

	headerRequestID = "X-Request-Id"
)
