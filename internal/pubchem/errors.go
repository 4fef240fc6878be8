package pubchem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
)

// Fault is the error body PUG REST returns alongside non-2xx statuses.
type Fault struct {
	Code    string   `json:"Code"`
	Message string   `json:"Message"`
	Details []string `json:"Details,omitempty"`
}

// StatusError is returned when PubChem answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Fault      *Fault
	Body       []byte
}

func newStatusError(status int, body []byte) *StatusError {
	se := &StatusError{StatusCode: status, Body: body}
	var env struct {
		Fault *Fault `json:"Fault"`
	}
	if json.Unmarshal(body, &env) == nil && env.Fault != nil {
		se.Fault = env.Fault
	}
	return se
}

func (e *StatusError) Error() string {
	if e.Fault != nil && e.Fault.Message != "" {
		return fmt.Sprintf("pubchem status %d: %s: %s", e.StatusCode, e.Fault.Code, e.Fault.Message)
	}
	return fmt.Sprintf("pubchem status %d", e.StatusCode)
}

// TransportError wraps failures to reach PubChem at all: dial errors, resets, timeouts, cancellation.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string { return "pubchem request failed: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline being hit.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}
