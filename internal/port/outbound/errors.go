package outbound

import (
	"errors"
	"fmt"
	"net/http"
)

// Error classes for use with errors.Is().
var (
	// ErrUnauthorized is matched by a 401 response.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is matched by a 403 response.
	ErrForbidden = errors.New("forbidden")

	// ErrServer is matched by any 5xx response.
	ErrServer = errors.New("server error")

	// ErrValidation is matched by any other 4xx response.
	ErrValidation = errors.New("validation error")

	// ErrNetworkUnreachable is returned when no response was received.
	ErrNetworkUnreachable = errors.New("network unreachable")

	// ErrNoToken is returned when the credential exchange succeeded but the
	// response carried no token.
	ErrNoToken = errors.New("no authentication token received")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	// Method and Path identify the failed request.
	Method string
	Path   string
	// Status is the HTTP status code.
	Status int
	// Detail is the server's "detail" message, if it sent one.
	Detail string
	// Body is the raw response body.
	Body []byte
}

// Error returns a description of the failed request.
func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

// Is reports whether the status falls in target's class.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrServer:
		return e.Status >= 500
	case ErrValidation:
		return e.Status >= 400 && e.Status < 500 &&
			e.Status != http.StatusUnauthorized && e.Status != http.StatusForbidden
	}
	return false
}

// IsAuthFailure reports whether the response must tear down the session.
func (e *StatusError) IsAuthFailure() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// NetworkError is returned when the request produced no response at all
// (DNS failure, refused connection, timeout).
type NetworkError struct {
	Method string
	Path   string
	Cause  error
}

// Error returns a description of the transport failure.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: network unreachable: %v", e.Method, e.Path, e.Cause)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is(err, ErrNetworkUnreachable).
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetworkUnreachable
}

// StatusOf returns the HTTP status carried by err, or 0 if there is none.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
