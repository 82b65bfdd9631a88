// Package server provides the public entry point for initializing the
// gateway.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(srv.Addr, srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/suxyu/archgw/internal/api"
	"github.com/suxyu/archgw/internal/api/handlers"
	"github.com/suxyu/archgw/internal/catalog"
	"github.com/suxyu/archgw/internal/config"
	"github.com/suxyu/archgw/internal/router"
	"github.com/suxyu/archgw/internal/telemetry"
)

// Server holds the initialized gateway.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Addr is the address the server should listen on.
	Addr string

	// Catalog is the live provider catalog.
	Catalog *catalog.Catalog

	// Config is the loaded environment configuration.
	Config *config.Config

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all gateway components from the environment and the
// rendered YAML config file.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the gateway with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	gw, err := config.LoadGatewayFile(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("path", cfg.ConfigPath).
		Int("providers", len(gw.LlmProviders)).
		Msg("gateway config loaded")

	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	cat := catalog.New(gw.LlmProviders)

	rs := router.NewService(cat, cfg.UpstreamEndpoint, gw.RoutingModel(), gw.RoutingProvider(), cfg.RouterTimeout)
	log.Info().
		Str("routing_model", gw.RoutingModel()).
		Str("routing_provider", gw.RoutingProvider()).
		Str("endpoint", cfg.UpstreamEndpoint).
		Msg("router service initialized")

	h := handlers.New(cat, rs, cfg.UpstreamEndpoint, cfg.UpstreamTimeout)

	return &Server{
		Handler:      api.NewRouter(cfg, h),
		Addr:         cfg.BindAddress,
		Catalog:      cat,
		Config:       cfg,
		ShutdownFunc: shutdown,
	}, nil
}
