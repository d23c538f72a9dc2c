package api

import (
	"fmt"
)

// TransportError is a failure raised before any response was obtained
// (lookup failure, refused connection, timeout).
type TransportError struct {
	Op      string
	Err     error
	timeout bool
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was an explicit timeout.
func (e *TransportError) Timeout() bool { return e.timeout }

// TransportFailure marks non-timeout transport failures for the
// classifier; timeouts classify separately.
func (e *TransportError) TransportFailure() bool { return !e.timeout }

// StatusError is a non-2xx response from the inventory service.
type StatusError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("http %d", e.Status)
}

// StatusCode exposes the response status for the classifier.
func (e *StatusError) StatusCode() int { return e.Status }
