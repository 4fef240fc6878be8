// Package gateway maps named tool invocations onto single PubChem PUG REST lookups
// and normalizes the outcome into a Response.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a single upstream call when no WithTimeout option is given.
const DefaultTimeout = 10 * time.Second

// Upstream performs one GET against the PubChem API. *pubchem.Client satisfies it.
type Upstream interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}

// Status is the outcome of an invocation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Response is the normalized result of an invocation. Exactly one of Payload and Error is set.
type Response struct {
	Status  Status          `json:"status"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Tool describes a supported operation and its JSON input schema.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Gateway is stateless apart from its injected upstream and is safe for concurrent use.
type Gateway struct {
	upstream Upstream
	timeout  time.Duration
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTimeout sets the per-invocation upstream deadline. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// New constructs a Gateway around an upstream client.
func New(upstream Upstream, opts ...Option) *Gateway {
	g := &Gateway{upstream: upstream, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Tools returns the descriptors of every supported operation in a stable order.
func (g *Gateway) Tools() []Tool {
	tools := make([]Tool, 0, len(operations))
	for _, op := range operations {
		def := operationTable[op]
		tools = append(tools, Tool{Name: def.name, Description: def.description, InputSchema: def.schema})
	}
	return tools
}

// Invoke runs the named operation. It never returns a Go error: every failure, including panics
// while handling the request, is reported through Response.Error.
func (g *Gateway) Invoke(ctx context.Context, name string, args Args) (resp Response) {
	start := time.Now()
	logger := log.With().Str("invocation_id", uuid.NewString()).Str("tool", name).Logger()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("panic recovered during invocation")
			resp = failure(&Error{Kind: KindInternalFault, Message: "internal error"})
		}
		recordInvocation(name, resp)

		evt := logger.Info()
		if resp.Error != nil {
			evt = logger.Warn().Str("kind", string(resp.Error.Kind)).Str("error", resp.Error.Message)
			if resp.Error.Kind == KindInternalFault {
				evt = logger.Error().Str("kind", string(resp.Error.Kind)).AnErr("cause", resp.Error.Err)
			}
		}
		evt.Str("status", string(resp.Status)).Dur("duration", time.Since(start)).Msg("invocation")
	}()

	op, ok := ParseOperation(name)
	if !ok {
		return failure(invalidArg("unsupported operation %q", name))
	}
	q, err := op.Build(args)
	if err != nil {
		return failure(asError(err))
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	callStart := time.Now()
	body, err := g.upstream.Get(ctx, q.Path, q.Query)
	recordUpstream(op, time.Since(callStart))
	if err != nil {
		return failure(classify(err))
	}
	if !json.Valid(body) {
		return failure(&Error{Kind: KindUpstreamError, Message: "upstream returned a non-JSON body", Detail: upstreamDetail(body)})
	}
	return Response{Status: StatusSuccess, Payload: json.RawMessage(body)}
}

func failure(e *Error) Response {
	return Response{Status: StatusFailure, Error: e}
}

func asError(err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	return &Error{Kind: KindInternalFault, Message: "internal error", Err: err}
}
