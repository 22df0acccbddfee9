// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package crisis

// ViralSpreadResult reports the viral-spread detector outcome.
type ViralSpreadResult struct {
	Viral       bool    `json:"viral"`
	TotalReach  int64   `json:"total_reach"`
	RecentCount int     `json:"recent_count"`
	GrowthRate  float64 `json:"growth_rate"` // recent / total, 0-1
}

// DetectViralSpread flags windows where high total reach coincides with
// accelerating volume. The recent sub-window is measured back from the
// latest signal's timestamp, not wall-clock time, so replayed history
// evaluates the same way live traffic does.
func DetectViralSpread(window []Signal, cfg DetectionConfig) ViralSpreadResult {
	result := ViralSpreadResult{}
	if len(window) == 0 {
		return result
	}

	latest := window[0].CapturedAt
	for i := range window {
		if r := window[i].Reach; r > 0 {
			result.TotalReach += r
		}
		if window[i].CapturedAt.After(latest) {
			latest = window[i].CapturedAt
		}
	}

	cutoff := latest.Add(-cfg.RecentWindow)
	for i := range window {
		if !window[i].CapturedAt.Before(cutoff) {
			result.RecentCount++
		}
	}
	result.GrowthRate = float64(result.RecentCount) / float64(len(window))

	result.Viral = result.TotalReach > cfg.ViralReachThreshold &&
		result.GrowthRate > cfg.ViralGrowthRate
	return result
}
