// Package mcp implements the Model Context Protocol (JSON-RPC 2.0) on top of the tool gateway.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"pubchem-mcp/internal/gateway"
)

// LatestProtocolVersion is returned when a client asks for a version we do not speak.
const LatestProtocolVersion = "2025-06-18"

var supportedVersions = map[string]bool{
	"2025-06-18": true,
	"2025-03-26": true,
	"2024-11-05": true,
}

const instructions = "Tools look up chemical compounds, substances and bioassays in PubChem. " +
	"Resolve names, formulas, SMILES or InChIKeys to CIDs first, then query properties or records by CID."

// Invoker is the subset of *gateway.Gateway the protocol layer needs.
type Invoker interface {
	Invoke(ctx context.Context, name string, args gateway.Args) gateway.Response
	Tools() []gateway.Tool
}

// Server dispatches JSON-RPC messages. It is transport-agnostic and safe for concurrent use.
type Server struct {
	invoker Invoker
	info    ServerInfo

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// NewServer builds a protocol server around inv.
func NewServer(inv Invoker, info ServerInfo) *Server {
	return &Server{invoker: inv, info: info, inflight: make(map[string]context.CancelFunc)}
}

// Handle processes one raw message. It returns nil for notifications, which get no reply.
func (s *Server) Handle(ctx context.Context, raw []byte) *Response {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '[' {
		return errorResponse(nil, CodeInvalidRequest, "batch requests are not supported")
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse(nil, CodeParseError, "parse error")
	}
	if req.ID == nil {
		s.notify(req)
		return nil
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return errorResponse(req.ID, CodeInvalidRequest, "invalid request")
	}

	ctx, cancel := context.WithCancel(ctx)
	key := string(req.ID)
	s.track(key, cancel)
	defer s.untrack(key)
	defer cancel()

	return s.dispatch(ctx, req)
}

func (s *Server) dispatch(ctx context.Context, req Request) *Response {
	switch req.Method {
	case "initialize":
		var p initializeParams
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &p); err != nil {
				return errorResponse(req.ID, CodeInvalidParams, "invalid initialize params")
			}
		}
		version := LatestProtocolVersion
		if supportedVersions[p.ProtocolVersion] {
			version = p.ProtocolVersion
		}
		log.Info().Str("client_version", p.ProtocolVersion).Str("negotiated", version).Msg("mcp initialize")
		return result(req.ID, initializeResult{
			ProtocolVersion: version,
			Capabilities:    map[string]any{"tools": map[string]any{"listChanged": false}},
			ServerInfo:      s.info,
			Instructions:    instructions,
		})
	case "ping":
		return result(req.ID, map[string]any{})
	case "tools/list":
		return result(req.ID, toolsListResult{Tools: s.invoker.Tools()})
	case "tools/call":
		var p CallToolParams
		if err := decodeParams(req.Params, &p); err != nil || p.Name == "" {
			return errorResponse(req.ID, CodeInvalidParams, "tools/call requires a tool name")
		}
		if p.Arguments == nil {
			p.Arguments = gateway.Args{}
		}
		return result(req.ID, toCallResult(s.invoker.Invoke(ctx, p.Name, p.Arguments)))
	}
	return errorResponse(req.ID, CodeMethodNotFound, "method not found: "+req.Method)
}

func (s *Server) notify(req Request) {
	switch req.Method {
	case "notifications/initialized":
		log.Debug().Msg("mcp client initialized")
	case "notifications/cancelled":
		var p cancelledParams
		if err := json.Unmarshal(req.Params, &p); err != nil || p.RequestID == nil {
			log.Warn().Msg("malformed cancellation notification")
			return
		}
		if s.cancel(string(p.RequestID)) {
			log.Info().RawJSON("request_id", p.RequestID).Str("reason", p.Reason).Msg("request cancelled by client")
		}
	default:
		log.Debug().Str("method", req.Method).Msg("ignoring notification")
	}
}

func (s *Server) track(key string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.inflight[key] = cancel
	s.mu.Unlock()
}

func (s *Server) untrack(key string) {
	s.mu.Lock()
	delete(s.inflight, key)
	s.mu.Unlock()
}

func (s *Server) cancel(key string) bool {
	s.mu.Lock()
	cancel, ok := s.inflight[key]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// toCallResult wraps a gateway response as MCP tool output. Failures stay tool results with isError set.
func toCallResult(resp gateway.Response) CallToolResult {
	var text []byte
	if resp.Error != nil {
		text, _ = json.Marshal(resp.Error)
	} else {
		text = resp.Payload
	}
	return CallToolResult{
		Content:           []Content{{Type: "text", Text: string(text)}},
		StructuredContent: resp,
		IsError:           resp.Status != gateway.StatusSuccess,
	}
}

// decodeParams keeps numbers as json.Number so large integer ids survive intact.
func decodeParams(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func result(id json.RawMessage, v any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: v}
}

func errorResponse(id json.RawMessage, code int, msg string) *Response {
	if id == nil {
		id = json.RawMessage("null")
	}
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: msg}}
}
