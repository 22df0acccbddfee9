// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package crisis

// VolumeSpikeResult reports the volume detector outcome plus the metrics
// the severity scorer needs.
type VolumeSpikeResult struct {
	Spike           bool    `json:"spike"`
	CurrentVolume   int     `json:"current_volume"`
	BaselineAverage float64 `json:"baseline_average"`

	// Multiplier is currentVolume / max(baselineAverage, 1), so it stays
	// meaningful when the historical average is below one signal per hour.
	Multiplier float64 `json:"multiplier"`
}

// DetectVolumeSpike flags abnormal volume against the rolling baseline.
// With no history at all (SampleCount == 0) significance cannot be
// assessed, so the detector reports no spike regardless of volume.
func DetectVolumeSpike(window []Signal, baseline Baseline, cfg DetectionConfig) VolumeSpikeResult {
	current := len(window)

	denom := baseline.Average
	if denom < 1 {
		denom = 1
	}

	result := VolumeSpikeResult{
		CurrentVolume:   current,
		BaselineAverage: baseline.Average,
		Multiplier:      float64(current) / denom,
	}

	if baseline.SampleCount == 0 {
		return result
	}

	result.Spike = float64(current) > baseline.Average*cfg.VolumeMultiplier
	return result
}
