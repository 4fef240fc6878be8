package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pubchem-mcp/internal/pubchem"
)

// Kind classifies a failed invocation.
type Kind string

const (
	KindInvalidArgument     Kind = "invalid_argument"
	KindNotFound            Kind = "not_found"
	KindUpstreamError       Kind = "upstream_error"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindInternalFault       Kind = "internal_fault"
)

// maxDetailBytes caps non-JSON upstream bodies echoed back in Error.Detail.
const maxDetailBytes = 2048

// Error is the failure half of a Response.
type Error struct {
	Kind           Kind            `json:"kind"`
	Message        string          `json:"message"`
	UpstreamStatus int             `json:"upstream_status,omitempty"`
	Detail         json.RawMessage `json:"detail,omitempty"`
	Err            error           `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func invalidArg(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// classify maps an upstream client error onto the failure taxonomy.
func classify(err error) *Error {
	var se *pubchem.StatusError
	if errors.As(err, &se) {
		e := &Error{
			Kind:           KindUpstreamError,
			Message:        se.Error(),
			UpstreamStatus: se.StatusCode,
			Detail:         upstreamDetail(se.Body),
			Err:            err,
		}
		if pubchem.IsNotFound(err) {
			e.Kind = KindNotFound
			e.Message = "not found"
			if se.Fault != nil && se.Fault.Message != "" {
				e.Message = se.Fault.Message
			}
		}
		return e
	}

	var te *pubchem.TransportError
	switch {
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindUpstreamUnavailable, Message: "request cancelled before upstream replied", Err: err}
	case errors.As(err, &te) && te.Timeout(), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindUpstreamUnavailable, Message: "upstream request timed out", Err: err}
	case errors.As(err, &te):
		return &Error{Kind: KindUpstreamUnavailable, Message: "upstream unreachable", Err: err}
	}
	return &Error{Kind: KindInternalFault, Message: "internal error", Err: err}
}

// upstreamDetail forwards the upstream error body: verbatim when it is JSON, as a truncated string otherwise.
func upstreamDetail(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	if len(body) > maxDetailBytes {
		body = body[:maxDetailBytes]
	}
	b, err := json.Marshal(string(body))
	if err != nil {
		return nil
	}
	return b
}
