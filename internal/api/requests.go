// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/pulseguard/pulseguard/internal/crisis"
	"github.com/pulseguard/pulseguard/internal/validation"
)

// maxBodyBytes bounds request bodies to keep ingestion cheap to abuse.
const maxBodyBytes = 1 << 20

// IngestSignalRequest is the request body for POST /signals.
type IngestSignalRequest struct {
	ID         string    `json:"id" validate:"omitempty,max=128"`
	Content    string    `json:"content" validate:"omitempty,max=10000"`
	Source     string    `json:"source" validate:"omitempty,max=256"`
	Sentiment  float64   `json:"sentiment" validate:"gte=-1,lte=1"`
	Reach      int64     `json:"reach" validate:"gte=0"`
	CapturedAt time.Time `json:"captured_at"`
}

// Signal converts the request into a domain signal.
func (req IngestSignalRequest) Signal() crisis.Signal {
	return crisis.Signal{
		ID:         req.ID,
		Content:    req.Content,
		Source:     req.Source,
		Sentiment:  req.Sentiment,
		Reach:      req.Reach,
		CapturedAt: req.CapturedAt,
	}
}

// EscalateRequest is the request body for POST /crises/{id}/escalate.
type EscalateRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
	By     string `json:"by" validate:"omitempty,max=128"`
}

// UpdateStatusRequest is the request body for PATCH /crises/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active resolved"`
	Note   string `json:"note" validate:"omitempty,max=2000"`
}

// AssignRequest is the request body for POST /crises/{id}/assign.
type AssignRequest struct {
	User string `json:"user" validate:"required,max=128"`
}

// CreateRuleRequest is the request body for POST /rules.
type CreateRuleRequest struct {
	Name     string              `json:"name" validate:"required,max=256"`
	Triggers crisis.RuleTriggers `json:"triggers"`
	Actions  crisis.RuleActions  `json:"actions"`
}

// UpdateRuleRequest is the request body for PATCH /rules/{id}.
type UpdateRuleRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// decodeAndValidate decodes the JSON request body into dst and runs
// validator tags against it. A false return means the response has
// already been written.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	rw := NewResponseWriter(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		rw.BadRequest("Invalid JSON request body")
		return false
	}

	if verr := validation.Struct(dst); verr != nil {
		rw.ValidationError("Request validation failed", verr.Fields())
		return false
	}
	return true
}
