package server

import "pubchem-mcp/internal/gateway"

// CallRequest is the body of POST /mcp/call.
type CallRequest struct {
	Name string       `json:"name"`
	Args gateway.Args `json:"arguments"`
}

type toolsResponse struct {
	Tools []gateway.Tool `json:"tools"`
}

type errorResponse struct {
	Error string `json:"error"`
}
