package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pubchem-mcp/internal/gateway"
	"pubchem-mcp/internal/mcp"
	"pubchem-mcp/internal/pubchem"
)

func fakePubChem(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/cid/2244/"):
			_, _ = w.Write([]byte(`{"PropertyTable":{"Properties":[{"CID":2244,"Title":"Aspirin"}]}}`))
		case strings.Contains(r.URL.Path, "/cid/500/"):
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"Fault":{"Code":"PUGREST.ServerBusy","Message":"Too many requests"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"Fault":{"Code":"PUGREST.NotFound","Message":"No CID found"}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	upstream := fakePubChem(t)
	gw := gateway.New(pubchem.New(upstream.URL, "", upstream.Client()), gateway.WithTimeout(2*time.Second))
	return New(cfg, gw, mcp.NewServer(gw, mcp.ServerInfo{Name: "pubchem-mcp", Version: "test"}))
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Config{})
	rr := do(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestMetricsToggle(t *testing.T) {
	on := newTestServer(t, Config{MetricsEnabled: true})
	rr := do(on, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")

	off := newTestServer(t, Config{})
	rr = do(off, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListTools(t *testing.T) {
	s := newTestServer(t, Config{})
	rr := do(s, http.MethodGet, "/mcp/tools", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		Tools []gateway.Tool `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Len(t, out.Tools, 21)
	assert.Equal(t, "lookup_by_cid", out.Tools[0].Name)
}

func TestCallStatusMapping(t *testing.T) {
	s := newTestServer(t, Config{})
	tests := []struct {
		name string
		body string
		code int
		kind gateway.Kind
	}{
		{"success", `{"name":"lookup_by_cid","arguments":{"cid":2244}}`, http.StatusOK, ""},
		{"not found", `{"name":"lookup_by_cid","arguments":{"cid":999999999}}`, http.StatusNotFound, gateway.KindNotFound},
		{"upstream error", `{"name":"lookup_by_cid","arguments":{"cid":500}}`, http.StatusBadGateway, gateway.KindUpstreamError},
		{"missing argument", `{"name":"lookup_by_cid","arguments":{}}`, http.StatusBadRequest, gateway.KindInvalidArgument},
		{"no arguments", `{"name":"lookup_by_cid"}`, http.StatusBadRequest, gateway.KindInvalidArgument},
		{"unknown tool", `{"name":"launch_rockets","arguments":{}}`, http.StatusBadRequest, gateway.KindInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(s, http.MethodPost, "/mcp/call", tt.body)
			require.Equal(t, tt.code, rr.Code, rr.Body.String())

			var resp gateway.Response
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			if tt.kind == "" {
				assert.Equal(t, gateway.StatusSuccess, resp.Status)
				assert.Nil(t, resp.Error)
				assert.Contains(t, string(resp.Payload), "Aspirin")
				return
			}
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.kind, resp.Error.Kind)
			assert.Empty(t, resp.Payload)
		})
	}
}

type recordingInvoker struct {
	args gateway.Args
}

func (r *recordingInvoker) Invoke(_ context.Context, _ string, args gateway.Args) gateway.Response {
	r.args = args
	return gateway.Response{Status: gateway.StatusSuccess, Payload: json.RawMessage(`{}`)}
}

func (r *recordingInvoker) Tools() []gateway.Tool { return nil }

func TestCallKeepsLargeIntegersExact(t *testing.T) {
	inv := &recordingInvoker{}
	s := New(Config{}, inv, mcp.NewServer(inv, mcp.ServerInfo{Name: "pubchem-mcp", Version: "test"}))

	rr := do(s, http.MethodPost, "/mcp/call", `{"name":"get_synonyms","arguments":{"cid":9007199254740993}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, json.Number("9007199254740993"), inv.args["cid"])
}

func TestCallRejectsInvalidJSON(t *testing.T) {
	s := newTestServer(t, Config{})
	rr := do(s, http.MethodPost, "/mcp/call", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatusForUnavailable(t *testing.T) {
	resp := gateway.Response{Status: gateway.StatusFailure, Error: &gateway.Error{Kind: gateway.KindUpstreamUnavailable}}
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(resp))
	resp.Error.Kind = gateway.KindInternalFault
	assert.Equal(t, http.StatusInternalServerError, statusFor(resp))
}

func TestJSONRPCOverHTTP(t *testing.T) {
	s := newTestServer(t, Config{})

	rr := do(s, http.MethodPost, "/mcp", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"lookup_by_cid","arguments":{"cid":2244}}}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		ID     int `json:"id"`
		Result struct {
			Content []mcp.Content `json:"content"`
			IsError bool          `json:"isError"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.ID)
	assert.False(t, resp.Result.IsError)
	require.Len(t, resp.Result.Content, 1)
	assert.Contains(t, resp.Result.Content[0].Text, "Aspirin")

	rr = do(s, http.MethodPost, "/mcp", `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Empty(t, rr.Body.String())

	rr = do(s, http.MethodPost, "/mcp", `not json`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"code":-32700`)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, Config{RateLimitRPS: 1, RateLimitBurst: 1})

	rr := do(s, http.MethodGet, "/mcp/tools", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(s, http.MethodGet, "/mcp/tools", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))

	// health is outside the limited group
	rr = do(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	// a different client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/mcp/tools", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	other := httptest.NewRecorder()
	s.Router().ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestRateLimitDisabled(t *testing.T) {
	assert.Nil(t, newRateLimiter(0, 5))
	s := newTestServer(t, Config{})
	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, do(s, http.MethodGet, "/mcp/tools", "").Code)
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunReportsListenError(t *testing.T) {
	s := newTestServer(t, Config{Addr: "not-an-address"})
	err := s.Run(context.Background())
	assert.Error(t, err)
}
