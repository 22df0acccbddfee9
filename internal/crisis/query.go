// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package crisis

import (
	"context"
	"sort"
	"time"
)

// QueryService is the read side for dashboards: active crisis listings and
// aggregate statistics. It never mutates state.
type QueryService struct {
	repo Repository
}

// NewQueryService creates a query service over the repository.
func NewQueryService(repo Repository) *QueryService {
	return &QueryService{repo: repo}
}

// ListFilter narrows ListActive results. Zero values mean "no filter".
type ListFilter struct {
	Severity      Severity `json:"severity,omitempty"`
	EscalatedOnly bool     `json:"escalated_only,omitempty"`
}

// ListActive returns active crises sorted by severity rank (critical first)
// and then detection time, newest first.
func (q *QueryService) ListActive(ctx context.Context, filter ListFilter) ([]*Crisis, error) {
	all, err := q.repo.ListCrises(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*Crisis, 0, len(all))
	for _, c := range all {
		if c.Status != StatusActive {
			continue
		}
		if filter.Severity != "" && c.Severity != filter.Severity {
			continue
		}
		if filter.EscalatedOnly && !c.Escalated {
			continue
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Severity.Rank() != out[j].Severity.Rank() {
			return out[i].Severity.Rank() > out[j].Severity.Rank()
		}
		return out[i].DetectedAt.After(out[j].DetectedAt)
	})
	return out, nil
}

// Stats aggregates the crisis population for dashboards.
type Stats struct {
	Total                int              `json:"total"`
	Active               int              `json:"active"`
	Resolved             int              `json:"resolved"`
	BySeverity           map[Severity]int `json:"by_severity"`
	EscalatedCount       int              `json:"escalated_count"`
	AvgResolutionMinutes float64          `json:"avg_resolution_minutes"`
}

// Statistics computes aggregates over all crises. AvgResolutionMinutes is
// computed only over resolved crises and is 0 when none are resolved.
func (q *QueryService) Statistics(ctx context.Context) (Stats, error) {
	all, err := q.repo.ListCrises(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{BySeverity: map[Severity]int{}}
	var resolutionTotal time.Duration

	for _, c := range all {
		stats.Total++
		stats.BySeverity[c.Severity]++
		if c.Escalated {
			stats.EscalatedCount++
		}
		switch c.Status {
		case StatusActive:
			stats.Active++
		case StatusResolved:
			stats.Resolved++
			if c.ResolvedAt != nil {
				resolutionTotal += c.ResolvedAt.Sub(c.DetectedAt)
			}
		}
	}

	if stats.Resolved > 0 {
		stats.AvgResolutionMinutes = resolutionTotal.Minutes() / float64(stats.Resolved)
	}
	return stats, nil
}
