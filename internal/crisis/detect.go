// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package crisis

import "time"

// DetectionConfig holds the tunable thresholds of the built-in detectors.
type DetectionConfig struct {
	// VolumeMultiplier is how far above baseline the current volume must be
	// to count as a spike.
	VolumeMultiplier float64 `json:"volume_multiplier" koanf:"volume_multiplier"`

	// SentimentSampleFloor is the minimum window size for the negative
	// sentiment detector; below it the detector never fires.
	SentimentSampleFloor int `json:"sentiment_sample_floor" koanf:"sentiment_sample_floor"`

	// NegativeBelow classifies a signal as negative when sentiment < this.
	NegativeBelow float64 `json:"negative_below" koanf:"negative_below"`

	// NegativeFraction is the fraction of negative signals that makes a
	// sentiment spike.
	NegativeFraction float64 `json:"negative_fraction" koanf:"negative_fraction"`

	// ViralReachThreshold is the minimum total reach for viral spread.
	ViralReachThreshold int64 `json:"viral_reach_threshold" koanf:"viral_reach_threshold"`

	// ViralGrowthRate is the minimum recent-window growth rate for viral
	// spread.
	ViralGrowthRate float64 `json:"viral_growth_rate" koanf:"viral_growth_rate"`

	// RecentWindow is the sub-window used for the growth rate, measured
	// back from the latest signal in the bucket.
	RecentWindow time.Duration `json:"recent_window" koanf:"recent_window"`

	// BaselineHours is the lookback for the rolling baseline.
	BaselineHours int `json:"baseline_hours" koanf:"baseline_hours"`
}

// DefaultDetectionConfig returns the thresholds the detectors ship with.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		VolumeMultiplier:     3,
		SentimentSampleFloor: 5,
		NegativeBelow:        -0.3,
		NegativeFraction:     0.6,
		ViralReachThreshold:  1_000_000,
		ViralGrowthRate:      0.5,
		RecentWindow:         30 * time.Minute,
		BaselineHours:        DefaultBaselineHours,
	}
}

// DetectionResult carries the three detector outputs for one bucket window.
type DetectionResult struct {
	Volume    VolumeSpikeResult    `json:"volume"`
	Sentiment SentimentSpikeResult `json:"sentiment"`
	Viral     ViralSpreadResult    `json:"viral"`
}

// Triggers collapses the result into the boolean trigger set.
func (r DetectionResult) Triggers() TriggerSet {
	return TriggerSet{
		VolumeSpike:       r.Volume.Spike,
		NegativeSentiment: r.Sentiment.Spike,
		ViralSpread:       r.Viral.Viral,
	}
}

// Detect runs all three detectors over a bucket snapshot and baseline.
// Detectors are pure functions over copies; they never see mutable store
// state, so a detector panic cannot corrupt a bucket.
func Detect(bucket TimeBucket, baseline Baseline, cfg DetectionConfig) DetectionResult {
	return DetectionResult{
		Volume:    DetectVolumeSpike(bucket.Signals, baseline, cfg),
		Sentiment: DetectNegativeSentiment(bucket.Signals, cfg),
		Viral:     DetectViralSpread(bucket.Signals, cfg),
	}
}
