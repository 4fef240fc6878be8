// Command pubchem-mcp serves PubChem lookups as MCP tools over stdio or HTTP.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"pubchem-mcp/internal/config"
	"pubchem-mcp/internal/gateway"
	"pubchem-mcp/internal/logging"
	"pubchem-mcp/internal/mcp"
	"pubchem-mcp/internal/pubchem"
	"pubchem-mcp/internal/server"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init("info", false, os.Stderr)
		log.Fatal().Err(err).Msg("failed to load config")
	}

	stdio := flag.Bool("stdio", cfg.Stdio, "serve MCP over stdin/stdout instead of HTTP")
	host := flag.String("host", cfg.Host, "HTTP bind host")
	port := flag.Int("port", cfg.Port, "HTTP bind port")
	flag.Parse()
	cfg.Stdio, cfg.Host, cfg.Port = *stdio, *host, *port
	if err := cfg.Validate(); err != nil {
		logging.Init("info", false, os.Stderr)
		log.Fatal().Err(err).Msg("invalid flags")
	}

	logging.Init(cfg.LogLevel, cfg.LogPretty, os.Stderr)

	client := pubchem.New(cfg.PubChemBaseURL, cfg.PubChemUserAgent, &http.Client{Timeout: cfg.PubChemTimeout})
	gw := gateway.New(client, gateway.WithTimeout(cfg.PubChemTimeout))
	rpc := mcp.NewServer(gw, mcp.ServerInfo{Name: "pubchem-mcp", Version: version})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Bool("stdio", cfg.Stdio).
		Str("upstream", cfg.PubChemBaseURL).
		Dur("timeout", cfg.PubChemTimeout).
		Int("tools", len(gw.Tools())).
		Msg("starting pubchem-mcp")

	if cfg.Stdio {
		err = rpc.ServeStdio(ctx, os.Stdin, os.Stdout)
	} else {
		srv := server.New(server.Config{
			Addr:            cfg.Addr(),
			RateLimitRPS:    cfg.RateLimitRPS,
			RateLimitBurst:  cfg.RateLimitBurst,
			MetricsEnabled:  cfg.MetricsEnabled,
			ShutdownTimeout: cfg.ShutdownTimeout,
		}, gw, rpc)
		err = srv.Run(ctx)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("stopped")
}
