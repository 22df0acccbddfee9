// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/pulseguard/pulseguard/internal/config"
	"github.com/pulseguard/pulseguard/internal/crisis"
)

type testServer struct {
	srv    *httptest.Server
	engine *crisis.Engine
	repo   *crisis.MemoryRepository
	store  *crisis.MemoryBucketStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := crisis.NewMemoryBucketStore()
	repo := crisis.NewMemoryRepository()
	engine := crisis.NewEngine(store, repo, crisis.DefaultDetectionConfig(), nil)
	handler := NewHandler(engine, crisis.NewQueryService(repo), nil)

	cfg := config.Default().Server
	router := NewRouter(handler, cfg)

	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, engine: engine, repo: repo, store: store}
}

func (ts *testServer) request(t *testing.T, method, path string, body interface{}) (*http.Response, APIResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

// reparse unmarshals the generic Data payload into dst.
func reparse(t *testing.T, data interface{}, dst interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("re-unmarshal data: %v", err)
	}
}

// seedCrisis puts a crisis directly into the repository.
func seedCrisis(t *testing.T, ts *testServer, id string, severity crisis.Severity) {
	t.Helper()
	c := &crisis.Crisis{
		ID:         id,
		Status:     crisis.StatusActive,
		Severity:   severity,
		Score:      40,
		Triggers:   crisis.TriggerSet{VolumeSpike: true},
		BucketKey:  time.Now().UTC().Truncate(time.Hour),
		DetectedAt: time.Now().UTC(),
	}
	if err := ts.repo.SaveCrisis(context.Background(), c); err != nil {
		t.Fatalf("seed crisis: %v", err)
	}
}

func TestIngestSignal(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.request(t, http.MethodPost, "/api/v1/signals", IngestSignalRequest{
		Content:   "minor grumbling",
		Source:    "twitter",
		Sentiment: -0.2,
		Reach:     100,
	})

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if !body.Success {
		t.Fatalf("success = false: %+v", body.Error)
	}

	var result crisis.IngestResult
	reparse(t, body.Data, &result)
	if result.Signal.ID == "" {
		t.Error("expected generated signal ID")
	}
	if result.IsCrisis {
		t.Error("single low-reach signal should not be a crisis")
	}
}

func TestIngestSignal_Validation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body IngestSignalRequest
	}{
		{"sentiment above range", IngestSignalRequest{Sentiment: 1.5}},
		{"sentiment below range", IngestSignalRequest{Sentiment: -2}},
		{"negative reach", IngestSignalRequest{Reach: -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := ts.request(t, http.MethodPost, "/api/v1/signals", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			if body.Error == nil || body.Error.Code != ErrCodeValidationFailed {
				t.Fatalf("error = %+v, want %s", body.Error, ErrCodeValidationFailed)
			}
		})
	}
}

func TestIngestSignal_MalformedJSON(t *testing.T) {
	ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/v1/signals", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetCrisis(t *testing.T) {
	ts := newTestServer(t)
	seedCrisis(t, ts, "c-1", crisis.SeverityMedium)

	resp, body := ts.request(t, http.MethodGet, "/api/v1/crises/c-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var c crisis.Crisis
	reparse(t, body.Data, &c)
	if c.ID != "c-1" || c.Severity != crisis.SeverityMedium {
		t.Errorf("crisis = %+v", c)
	}
}

func TestGetCrisis_NotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.request(t, http.MethodGet, "/api/v1/crises/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if body.Error == nil || body.Error.Code != ErrCodeNotFound {
		t.Fatalf("error = %+v", body.Error)
	}
}

func TestListCrises_Filters(t *testing.T) {
	ts := newTestServer(t)
	seedCrisis(t, ts, "c-low", crisis.SeverityLow)
	seedCrisis(t, ts, "c-high", crisis.SeverityHigh)

	resp, body := ts.request(t, http.MethodGet, "/api/v1/crises/?severity=high", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var crises []crisis.Crisis
	reparse(t, body.Data, &crises)
	if len(crises) != 1 || crises[0].ID != "c-high" {
		t.Errorf("crises = %+v, want only c-high", crises)
	}

	resp, _ = ts.request(t, http.MethodGet, "/api/v1/crises/?severity=bogus", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bogus severity status = %d, want 400", resp.StatusCode)
	}
}

func TestEscalateCrisis(t *testing.T) {
	ts := newTestServer(t)
	seedCrisis(t, ts, "c-1", crisis.SeverityHigh)

	resp, body := ts.request(t, http.MethodPost, "/api/v1/crises/c-1/escalate", EscalateRequest{Reason: "vp request", By: "alice"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var rec crisis.EscalationRecord
	reparse(t, body.Data, &rec)
	if rec.CrisisID != "c-1" || rec.Reason != "vp request" || rec.EscalatedBy != "alice" {
		t.Errorf("record = %+v", rec)
	}

	// Second escalation conflicts.
	resp, body = ts.request(t, http.MethodPost, "/api/v1/crises/c-1/escalate", EscalateRequest{Reason: "again"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("repeat status = %d, want 409", resp.StatusCode)
	}
	if body.Error == nil || body.Error.Code != ErrCodeConflict {
		t.Fatalf("error = %+v", body.Error)
	}
}

func TestEscalateCrisis_RequiresReason(t *testing.T) {
	ts := newTestServer(t)
	seedCrisis(t, ts, "c-1", crisis.SeverityHigh)

	resp, _ := ts.request(t, http.MethodPost, "/api/v1/crises/c-1/escalate", EscalateRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUpdateCrisisStatus(t *testing.T) {
	ts := newTestServer(t)
	seedCrisis(t, ts, "c-1", crisis.SeverityMedium)

	resp, body := ts.request(t, http.MethodPatch, "/api/v1/crises/c-1/status", UpdateStatusRequest{Status: "resolved", Note: "all clear"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var c crisis.Crisis
	reparse(t, body.Data, &c)
	if c.Status != crisis.StatusResolved || c.ResolvedAt == nil {
		t.Errorf("crisis = %+v, want resolved", c)
	}

	// Unknown status values are rejected by validation before the engine.
	resp, _ = ts.request(t, http.MethodPatch, "/api/v1/crises/c-1/status", UpdateStatusRequest{Status: "paused"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown status = %d, want 400", resp.StatusCode)
	}

	// Re-opening is an illegal transition.
	resp, _ = ts.request(t, http.MethodPatch, "/api/v1/crises/c-1/status", UpdateStatusRequest{Status: "active"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("reopen status = %d, want 409", resp.StatusCode)
	}
}

func TestAssignCrisis(t *testing.T) {
	ts := newTestServer(t)
	seedCrisis(t, ts, "c-1", crisis.SeverityMedium)

	resp, body := ts.request(t, http.MethodPost, "/api/v1/crises/c-1/assign", AssignRequest{User: "oncall"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var c crisis.Crisis
	reparse(t, body.Data, &c)
	if c.AssignedTo != "oncall" {
		t.Errorf("AssignedTo = %q, want oncall", c.AssignedTo)
	}

	resp, _ = ts.request(t, http.MethodPost, "/api/v1/crises/c-1/assign", AssignRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty user status = %d, want 400", resp.StatusCode)
	}
}

func TestCrisisStats(t *testing.T) {
	ts := newTestServer(t)
	seedCrisis(t, ts, "c-1", crisis.SeverityHigh)
	seedCrisis(t, ts, "c-2", crisis.SeverityLow)

	resp, body := ts.request(t, http.MethodGet, "/api/v1/crises/stats", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var stats crisis.Stats
	reparse(t, body.Data, &stats)
	if stats.Total != 2 || stats.Active != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRuleLifecycle(t *testing.T) {
	ts := newTestServer(t)

	threshold := 100
	resp, body := ts.request(t, http.MethodPost, "/api/v1/rules", CreateRuleRequest{
		Name:     "volume watch",
		Triggers: crisis.RuleTriggers{VolumeThreshold: &threshold},
		Actions:  crisis.RuleActions{NotifyUsers: []string{"alice"}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}

	var rule crisis.CrisisRule
	reparse(t, body.Data, &rule)
	if rule.ID == "" || !rule.IsActive {
		t.Fatalf("rule = %+v", rule)
	}

	resp, body = ts.request(t, http.MethodGet, "/api/v1/rules/"+rule.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}

	inactive := false
	resp, body = ts.request(t, http.MethodPatch, "/api/v1/rules/"+rule.ID, UpdateRuleRequest{Active: &inactive})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d, want 200", resp.StatusCode)
	}
	reparse(t, body.Data, &rule)
	if rule.IsActive {
		t.Error("rule still active after deactivation")
	}

	resp, body = ts.request(t, http.MethodGet, "/api/v1/rules/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	var rules []crisis.CrisisRule
	reparse(t, body.Data, &rules)
	if len(rules) != 1 {
		t.Errorf("rules = %d, want 1", len(rules))
	}
}

func TestCreateRule_EmptyTriggersRejected(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.request(t, http.MethodPost, "/api/v1/rules", CreateRuleRequest{Name: "no-op"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body.Error == nil || body.Error.Code != ErrCodeValidationFailed {
		t.Fatalf("error = %+v", body.Error)
	}
}

func TestDetectionConfig(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.request(t, http.MethodGet, "/api/v1/detection/config", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}

	var cfg crisis.DetectionConfig
	reparse(t, body.Data, &cfg)
	if cfg.VolumeMultiplier != 3 {
		t.Errorf("VolumeMultiplier = %v, want default 3", cfg.VolumeMultiplier)
	}

	cfg.VolumeMultiplier = 5
	resp, body = ts.request(t, http.MethodPut, "/api/v1/detection/config", cfg)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put status = %d, want 200", resp.StatusCode)
	}
	reparse(t, body.Data, &cfg)
	if cfg.VolumeMultiplier != 5 {
		t.Errorf("VolumeMultiplier = %v after update, want 5", cfg.VolumeMultiplier)
	}

	cfg.VolumeMultiplier = -1
	resp, _ = ts.request(t, http.MethodPut, "/api/v1/detection/config", cfg)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid config status = %d, want 400", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.request(t, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var health healthResponse
	reparse(t, body.Data, &health)
	if health.Status != "ok" || !health.DetectionEnabled {
		t.Errorf("health = %+v", health)
	}
}

func TestHealthProbes(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.request(t, http.MethodGet, "/health/live", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("liveness status = %d, want 200", resp.StatusCode)
	}
	var live map[string]interface{}
	reparse(t, body.Data, &live)
	if live["alive"] != true {
		t.Errorf("liveness payload = %v", live)
	}

	resp, _ = ts.request(t, http.MethodGet, "/health/ready", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readiness status = %d, want 200", resp.StatusCode)
	}

	ts.engine.SetEnabled(false)
	resp, _ = ts.request(t, http.MethodGet, "/health/ready", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("readiness while disabled = %d, want 503", resp.StatusCode)
	}
}

func TestIngestRateLimit(t *testing.T) {
	store := crisis.NewMemoryBucketStore()
	repo := crisis.NewMemoryRepository()
	engine := crisis.NewEngine(store, repo, crisis.DefaultDetectionConfig(), nil)
	handler := NewHandler(engine, crisis.NewQueryService(repo), nil)

	cfg := config.Default().Server
	cfg.IngestRateLimit = 3
	cfg.IngestRateWindow = time.Minute

	srv := httptest.NewServer(NewRouter(handler, cfg).Setup())
	defer srv.Close()

	var last int
	for i := 0; i < 5; i++ {
		payload := fmt.Sprintf(`{"content":"s%d","sentiment":0,"reach":1}`, i)
		resp, err := srv.Client().Post(srv.URL+"/api/v1/signals", "application/json", bytes.NewReader([]byte(payload)))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		last = resp.StatusCode
		resp.Body.Close()
	}

	if last != http.StatusTooManyRequests {
		t.Fatalf("final request status = %d, want 429", last)
	}
}
