// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

// Package main is the entry point for the PulseGuard server.
//
// PulseGuard watches a stream of brand mentions for crisis signatures:
// volume spikes against a rolling hourly baseline, negative sentiment
// surges, and viral reach bursts. Detected crises flow through a
// lifecycle with cooldown dedup, severity scoring, escalation, and
// user-authored rules, and are pushed to webhooks and WebSocket
// dashboards in real time.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, YAML file, environment (Koanf v2)
//  2. Detection engine: bucket store, baseline, detectors, lifecycle, rules
//  3. Event bus: in-memory Watermill pub/sub for crisis events
//  4. WebSocket hub and bus subscriber for dashboard pushes
//  5. Notification dispatcher with the webhook notifier (if configured)
//  6. HTTP server: REST API, /health, /metrics, /api/v1/ws
//
// All long-running pieces run under a suture supervisor tree; a crash in
// one layer is restarted without taking down ingestion.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (SERVER_PORT, DETECTION_VOLUME_MULTIPLIER, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the HTTP
// server drains in-flight requests, the dispatcher finishes deliveries
// in progress, and the event bus closes.
//
// # Example Usage
//
//	export WEBHOOK_ENABLED=true
//	export WEBHOOK_URL=https://hooks.example.com/crisis
//	./pulseguard
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pulseguard/pulseguard/internal/api"
	"github.com/pulseguard/pulseguard/internal/config"
	"github.com/pulseguard/pulseguard/internal/crisis"
	"github.com/pulseguard/pulseguard/internal/events"
	"github.com/pulseguard/pulseguard/internal/logging"
	"github.com/pulseguard/pulseguard/internal/notify"
	"github.com/pulseguard/pulseguard/internal/supervisor"
	"github.com/pulseguard/pulseguard/internal/supervisor/services"
	ws "github.com/pulseguard/pulseguard/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config errors are reported through the default logger since
		// logging settings are part of the config itself.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Float64("volume_multiplier", cfg.Detection.VolumeMultiplier).
		Int("baseline_hours", cfg.Detection.BaselineHours).
		Bool("webhook_enabled", cfg.Webhook.Enabled).
		Msg("Starting PulseGuard")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Event bus first: everything downstream subscribes to it.
	bus := events.NewBus(cfg.Events.BufferSize, events.NewLoggerAdapter())
	defer bus.Close()

	// Detection engine over in-memory stores.
	store := crisis.NewMemoryBucketStore()
	repo := crisis.NewMemoryRepository()
	engine := crisis.NewEngine(store, repo, cfg.Detection, bus)
	query := crisis.NewQueryService(repo)

	// WebSocket hub plus the subscriber that relays bus events to it.
	hub := ws.NewHub()
	hubSubscriber := ws.NewBusSubscriber(bus, hub)

	// Notification dispatcher. The webhook notifier is registered even
	// when disabled so it can be toggled at runtime.
	webhook := notify.NewWebhookNotifier(cfg.Webhook)
	dispatcher := notify.NewDispatcher(bus, webhook)

	handler := api.NewHandler(engine, query, hub)
	router := api.NewRouter(handler, cfg.Server)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Supervisor tree: detection, messaging, api layers.
	// sutureslog wants slog, so bridge zerolog through the adapter.
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDetectionService(services.NewRunnerService("crisis-engine", engine))
	tree.AddMessagingService(services.NewRunnerService("websocket-hub", hub))
	tree.AddMessagingService(hubSubscriber)
	tree.AddMessagingService(dispatcher)
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Supervisor tree starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree exited with error")
		os.Exit(1)
	}

	logging.Info().Msg("Shutdown complete")
}
