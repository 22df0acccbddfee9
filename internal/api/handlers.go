// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/pulseguard/pulseguard/internal/crisis"
	"github.com/pulseguard/pulseguard/internal/logging"
	ws "github.com/pulseguard/pulseguard/internal/websocket"
)

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	engine    *crisis.Engine
	query     *crisis.QueryService
	hub       *ws.Hub
	startedAt time.Time
}

// NewHandler creates an API handler over the detection engine, the read-side
// query service, and the WebSocket hub. The hub may be nil in tests.
func NewHandler(engine *crisis.Engine, query *crisis.QueryService, hub *ws.Hub) *Handler {
	return &Handler{
		engine:    engine,
		query:     query,
		hub:       hub,
		startedAt: time.Now(),
	}
}

// getUpgrader returns the WebSocket upgrader.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// IngestSignal handles POST /api/v1/signals. The signal is appended to the
// current hour bucket and runs through the full detection pipeline
// synchronously, so the response already reflects any crisis it caused.
func (h *Handler) IngestSignal(w http.ResponseWriter, r *http.Request) {
	var req IngestSignalRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result := h.engine.IngestSignal(r.Context(), req.Signal())
	NewResponseWriter(w, r).Created(result)
}

// ListCrises handles GET /api/v1/crises. Supports severity and
// escalated_only query filters; results are sorted by severity rank and
// recency.
func (h *Handler) ListCrises(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	filter := crisis.ListFilter{
		EscalatedOnly: r.URL.Query().Get("escalated_only") == "true",
	}
	if sev := r.URL.Query().Get("severity"); sev != "" {
		severity := crisis.Severity(sev)
		if severity.Rank() == 0 {
			rw.BadRequest("Unknown severity: " + sev)
			return
		}
		filter.Severity = severity
	}

	crises, err := h.query.ListActive(r.Context(), filter)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	rw.Success(crises)
}

// GetCrisis handles GET /api/v1/crises/{id}.
func (h *Handler) GetCrisis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := h.engine.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(c)
}

// EscalateCrisis handles POST /api/v1/crises/{id}/escalate. A crisis can be
// escalated once; repeats return 409.
func (h *Handler) EscalateCrisis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req EscalateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	by := req.By
	if by == "" {
		by = "api"
	}

	rec, err := h.engine.Escalate(r.Context(), id, req.Reason, by)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(rec)
}

// UpdateCrisisStatus handles PATCH /api/v1/crises/{id}/status. Resolving an
// already-resolved crisis is a no-op that returns the unchanged crisis.
func (h *Handler) UpdateCrisisStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	c, err := h.engine.UpdateStatus(r.Context(), id, crisis.Status(req.Status), req.Note)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(c)
}

// AssignCrisis handles POST /api/v1/crises/{id}/assign.
func (h *Handler) AssignCrisis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req AssignRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	c, err := h.engine.Assign(r.Context(), id, req.User)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(c)
}

// CrisisStats handles GET /api/v1/crises/stats.
func (h *Handler) CrisisStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.query.Statistics(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(stats)
}

// CreateRule handles POST /api/v1/rules.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	rule, err := h.engine.Rules().CreateRule(req.Name, req.Triggers, req.Actions)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(rule)
}

// ListRules handles GET /api/v1/rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.engine.Rules().ListRules())
}

// GetRule handles GET /api/v1/rules/{id}.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rule, err := h.engine.Rules().GetRule(id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(rule)
}

// UpdateRule handles PATCH /api/v1/rules/{id}. Only the active flag is
// mutable; trigger changes require creating a new rule.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateRuleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	rule, err := h.engine.Rules().SetRuleActive(id, *req.Active)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(rule)
}

// GetDetectionConfig handles GET /api/v1/detection/config.
func (h *Handler) GetDetectionConfig(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.engine.Config())
}

// UpdateDetectionConfig handles PUT /api/v1/detection/config. The new
// thresholds take effect for the next detection pass.
func (h *Handler) UpdateDetectionConfig(w http.ResponseWriter, r *http.Request) {
	var cfg crisis.DetectionConfig
	if !decodeAndValidate(w, r, &cfg) {
		return
	}

	if err := h.engine.Configure(cfg); err != nil {
		respondDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(h.engine.Config())
}

// healthResponse is the payload for GET /health.
type healthResponse struct {
	Status           string  `json:"status"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
	DetectionEnabled bool    `json:"detection_enabled"`
	WSClients        int     `json:"ws_clients"`
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:           "ok",
		UptimeSeconds:    time.Since(h.startedAt).Seconds(),
		DetectionEnabled: h.engine.Enabled(),
	}
	if h.hub != nil {
		resp.WSClients = h.hub.ClientCount()
	}
	NewResponseWriter(w, r).Success(resp)
}

// HealthLive handles GET /health/live. Returns 200 whenever the
// process is up, regardless of dependency state.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":          true,
		"uptime_seconds": time.Since(h.startedAt).Seconds(),
	})
}

// HealthReady handles GET /health/ready. Ready means the detection
// engine is accepting signals; 503 otherwise so load balancers hold
// traffic during startup and drain.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.engine == nil || !h.engine.Enabled() {
		rw.Error(http.StatusServiceUnavailable, ErrCodeInternalError, "Detection engine not ready")
		return
	}
	rw.Success(map[string]interface{}{"ready": true})
}

// WebSocket handles GET /api/v1/ws, upgrading the connection and
// registering the client with the hub for live crisis events.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeInternalError, "WebSocket hub not available")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		logging.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()

	logging.Debug().Uint64("client_id", client.ID()).Msg("WebSocket client connected")
}
