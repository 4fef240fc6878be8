// Package server provides the HTTP transport and routing for the MCP server.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"pubchem-mcp/internal/gateway"
	"pubchem-mcp/internal/mcp"
)

const maxBodyBytes = 8 << 20

// Config contains HTTP transport settings.
type Config struct {
	Addr            string
	RateLimitRPS    float64
	RateLimitBurst  int
	MetricsEnabled  bool
	ShutdownTimeout time.Duration
}

// Server contains the configured router and the handlers behind it.
type Server struct {
	cfg     Config
	router  *chi.Mux
	invoker mcp.Invoker
	rpc     *mcp.Server
}

// New constructs a Server with middleware and routes configured.
func New(cfg Config, inv mcp.Invoker, rpc *mcp.Server) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		cfg:     cfg,
		router:  chi.NewRouter(),
		invoker: inv,
		rpc:     rpc,
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Get("/health", s.handleHealth)
	if cfg.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler())
	}

	s.router.Route("/mcp", func(r chi.Router) {
		r.Use(newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).middleware)
		r.Post("/", s.handleRPC)
		r.Get("/tools", s.handleListTools)
		r.Post("/call", s.handleCall)
	})

	return s
}

// Router exposes the root HTTP handler for the server.
func (s *Server) Router() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      75 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", s.cfg.Addr).Msg("http transport listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("graceful shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toolsResponse{Tools: s.invoker.Tools()})
}

// handleCall is a plain REST rendition of tools/call for callers that do not speak JSON-RPC.
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	if req.Args == nil {
		req.Args = gateway.Args{}
	}
	resp := s.invoker.Invoke(r.Context(), req.Name, req.Args)
	writeJSON(w, statusFor(resp), resp)
}

// handleRPC carries one JSON-RPC message per POST.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unreadable body"})
		return
	}
	resp := s.rpc.Handle(r.Context(), body)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusFor maps a gateway outcome onto an HTTP status code.
func statusFor(resp gateway.Response) int {
	if resp.Error == nil {
		return http.StatusOK
	}
	switch resp.Error.Kind {
	case gateway.KindInvalidArgument:
		return http.StatusBadRequest
	case gateway.KindNotFound:
		return http.StatusNotFound
	case gateway.KindUpstreamError:
		return http.StatusBadGateway
	case gateway.KindUpstreamUnavailable:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}
