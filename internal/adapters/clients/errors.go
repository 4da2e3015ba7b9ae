// Package clients is the outbound HTTP layer used to reach the blog API:
// retries, a circuit breaker, tracing and id propagation. Translating
// responses into domain results is the job of the acl subpackage.
package clients

import "errors"

// Transport failures. They never leave the adapter layer untranslated.
var (
	// ErrCircuitOpen means the breaker rejected the request without sending it.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last transport error once every attempt
	// failed.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
