// Package classify maps raised failures onto a closed taxonomy of
// error types and severities, and advises a recovery strategy for each.
package classify

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Type is the failure taxonomy.
type Type string

const (
	TypeNetwork         Type = "network"
	TypeValidation      Type = "validation"
	TypeAuthentication  Type = "authentication"
	TypeAuthorization   Type = "authorization"
	TypeDataConsistency Type = "data_consistency"
	TypeNotFound        Type = "not_found"
	TypeServer          Type = "server"
	TypeUnknown         Type = "unknown"
)

// Severity grades how serious a failure is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Classification is a (type, severity) pair derived from the shape of a
// failure. It is recomputed on demand and never cached.
type Classification struct {
	Type     Type
	Severity Severity
}

// statusCoder is implemented by failures that carry an HTTP-like status.
type statusCoder interface {
	StatusCode() int
}

// transportFailer is implemented by failures raised before any response
// was obtained (lookup failure, refused connection).
type transportFailer interface {
	TransportFailure() bool
}

// Classify derives a Classification from err. It never panics and never
// fails: a nil or unrecognized failure yields a usable fallback.
//
// Priority order: transport failure, timeout, carried status code,
// validation by name, unknown.
func Classify(err error) Classification {
	if err == nil {
		return Classification{TypeUnknown, SeverityLow}
	}

	var tf transportFailer
	if errors.As(err, &tf) && tf.TransportFailure() {
		return Classification{TypeNetwork, SeverityHigh}
	}

	if isTimeout(err) {
		return Classification{TypeNetwork, SeverityMedium}
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		return classifyStatus(sc.StatusCode())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		// Non-timeout net errors mean we never got a response.
		return Classification{TypeNetwork, SeverityHigh}
	}

	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "connection refused"),
		strings.Contains(s, "no such host"),
		strings.Contains(s, "network is unreachable"):
		return Classification{TypeNetwork, SeverityHigh}
	case strings.Contains(s, "timeout"), strings.Contains(s, "timed out"):
		return Classification{TypeNetwork, SeverityMedium}
	case strings.Contains(s, "validation"), strings.Contains(s, "invalid"):
		return Classification{TypeValidation, SeverityMedium}
	}

	return Classification{TypeUnknown, SeverityMedium}
}

func classifyStatus(status int) Classification {
	switch {
	case status == 401:
		return Classification{TypeAuthentication, SeverityCritical}
	case status == 403:
		return Classification{TypeAuthorization, SeverityHigh}
	case status == 404:
		return Classification{TypeNotFound, SeverityMedium}
	case status == 409:
		return Classification{TypeDataConsistency, SeverityHigh}
	case status >= 400 && status < 500:
		return Classification{TypeValidation, SeverityMedium}
	case status >= 500:
		return Classification{TypeServer, SeverityHigh}
	}
	return Classification{TypeUnknown, SeverityMedium}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var to interface{ Timeout() bool }
	if errors.As(err, &to) && to.Timeout() {
		return true
	}
	return false
}
