// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulseguard/pulseguard/internal/config"
)

// defaultAPIRateLimit bounds non-ingest API traffic per client IP.
const defaultAPIRateLimit = 100

// Router wires handlers into the HTTP route tree.
type Router struct {
	handler *Handler
	cfg     config.ServerConfig
}

// NewRouter creates a router over the handler set.
func NewRouter(handler *Handler, cfg config.ServerConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup configures all HTTP routes using Chi.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestMetrics())

	// Health endpoints with permissive rate limiting for monitoring tools.
	r.Group(func(r chi.Router) {
		r.Use(RateLimit(1000, time.Minute))
		r.Get("/health", router.handler.Health)
		r.Get("/health/live", router.handler.HealthLive)
		r.Get("/health/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SecurityHeaders())

		// Signal ingestion carries its own limit since producers post at
		// a much higher rate than dashboard traffic.
		r.Group(func(r chi.Router) {
			r.Use(RateLimit(router.cfg.IngestRateLimit, router.cfg.IngestRateWindow))
			r.Post("/signals", router.handler.IngestSignal)
		})

		r.Group(func(r chi.Router) {
			r.Use(RateLimit(defaultAPIRateLimit, time.Minute))

			r.Route("/crises", func(r chi.Router) {
				r.Get("/", router.handler.ListCrises)
				r.Get("/stats", router.handler.CrisisStats)
				r.Get("/{id}", router.handler.GetCrisis)
				r.Post("/{id}/escalate", router.handler.EscalateCrisis)
				r.Patch("/{id}/status", router.handler.UpdateCrisisStatus)
				r.Post("/{id}/assign", router.handler.AssignCrisis)
			})

			r.Route("/rules", func(r chi.Router) {
				r.Get("/", router.handler.ListRules)
				r.Post("/", router.handler.CreateRule)
				r.Get("/{id}", router.handler.GetRule)
				r.Patch("/{id}", router.handler.UpdateRule)
			})

			r.Route("/detection", func(r chi.Router) {
				r.Get("/config", router.handler.GetDetectionConfig)
				r.Put("/config", router.handler.UpdateDetectionConfig)
			})

			r.Get("/ws", router.handler.WebSocket)
		})
	})

	// Observability
	r.Handle("/metrics", promhttp.Handler())

	return r
}
