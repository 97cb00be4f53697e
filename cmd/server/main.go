// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

// Package main is the entry point for the Flytrap server.
//
// Flytrap records sessions from instrumented honeypot pages and streams
// them live to monitoring dashboards. The server holds everything in
// memory: a bounded session registry, a current-telemetry slot per
// session, and a fan-out broker feeding SSE and WebSocket monitors. A
// process restart starts from an empty registry; only the Prometheus
// counters on a scraping server survive in any form.
//
// Startup order:
//
//  1. Configuration: Koanf v2 layered load (defaults, config.yaml,
//     environment variables), validated before anything starts.
//  2. Logging: zerolog, console or JSON format per config.
//  3. GeoIP: optional ip-api.com enrichment behind a circuit breaker.
//  4. Broker and registry construction.
//  5. Supervision: suture tree with the broker in the messaging layer and
//     the HTTP server in the API layer.
//
// # Configuration
//
// Highest priority wins: environment variables, then config.yaml, then
// built-in defaults. See .env.example for the variable list. For monitor
// authentication:
//   - AUTH_ENABLED=true
//   - JWT_SECRET: 32+ character secret for token signing
//   - ADMIN_USERNAME / ADMIN_PASSWORD_HASH: bcrypt credential pair
//     (generate the hash with `flytrap-agent -hash-password`)
//
// # Signal handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the listener stops
// accepting, in-flight requests drain for up to 10 seconds, and the broker
// closes every monitor stream.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/flytrap/internal/api"
	"github.com/tomtom215/flytrap/internal/auth"
	"github.com/tomtom215/flytrap/internal/config"
	"github.com/tomtom215/flytrap/internal/events"
	"github.com/tomtom215/flytrap/internal/geoip"
	"github.com/tomtom215/flytrap/internal/logging"
	"github.com/tomtom215/flytrap/internal/metrics"
	"github.com/tomtom215/flytrap/internal/registry"
	"github.com/tomtom215/flytrap/internal/supervisor"
	"github.com/tomtom215/flytrap/internal/supervisor/services"
)

var version = "dev"

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("addr", cfg.Server.ListenAddr()).
		Int("registry_capacity", cfg.Registry.Capacity).
		Bool("auth_enabled", cfg.Security.AuthEnabled).
		Bool("geoip_enabled", cfg.GeoIP.Enabled).
		Msg("Starting Flytrap")

	metrics.SetAppInfo(version)

	reg := registry.New(cfg.Registry.Capacity, cfg.Registry.RecentLimit)
	broker := events.NewBroker(cfg.Broker.SubscriberBuffer, cfg.Broker.HeartbeatInterval)
	geo := geoip.NewService(cfg.GeoIP)

	var jwtManager *auth.JWTManager
	var credentials *auth.CredentialChecker
	if cfg.Security.AuthEnabled {
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		credentials, err = auth.NewCredentialChecker(cfg.Security.AdminUsername, cfg.Security.AdminPasswordHash)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize credential checker")
		}
	}

	handler := api.NewHandler(cfg, reg, broker, geo, jwtManager, credentials, version)
	router := api.NewRouter(handler, auth.NewMiddleware(jwtManager, cfg.Security.AuthEnabled), cfg)

	server := &http.Server{
		Addr:              cfg.Server.ListenAddr(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		// No WriteTimeout: SSE and WebSocket connections are long-lived.
		IdleTimeout: 120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(services.NewBrokerService(broker))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Flytrap stopped")
}
