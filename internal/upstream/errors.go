package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors.
var (
	// ErrNotFound is the absence signal: upstream reported that nothing matched.
	ErrNotFound = errors.New("product not found")

	// ErrCircuitOpen is returned when the circuit breaker rejects a call.
	ErrCircuitOpen = errors.New("upstream circuit breaker open")
)

// StatusError is an upstream response with a status the operation does
// not accept. Body holds the raw response body, truncated to
// maxErrorBodySize.
type StatusError struct {
	Op          string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s: unexpected status %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is reports whether target is a *StatusError.
func (e *StatusError) Is(target error) bool {
	_, ok := target.(*StatusError)
	return ok
}

// DecodeError is an upstream body that does not match the product shape.
type DecodeError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("upstream %s: decode response: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TransportError is a failure to complete the exchange: connection,
// DNS, TLS, timeout or cancellation. context errors remain reachable
// through errors.Is.
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// notFound builds the absence signal for op, keeping the status that
// caused it for logging.
func notFound(op string, statusCode int) error {
	return fmt.Errorf("%w: %w", ErrNotFound, &StatusError{Op: op, StatusCode: statusCode})
}

// ContentError is a failure to read the caller's file content while it
// was being sent. The request never completed, so no upstream answer is
// available.
type ContentError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *ContentError) Error() string {
	return fmt.Sprintf("upstream %s: read file content: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ContentError) Unwrap() error {
	return e.Err
}
