// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package crisis

// SentimentSpikeResult reports the negative-sentiment detector outcome.
type SentimentSpikeResult struct {
	Spike         bool    `json:"spike"`
	NegativeCount int     `json:"negative_count"`
	SampleSize    int     `json:"sample_size"`
	Percentage    float64 `json:"percentage"` // 0-100
}

// DetectNegativeSentiment flags windows dominated by negative mentions.
// Windows below the statistical floor never fire: a couple of angry posts
// in an otherwise quiet hour is not a crisis.
func DetectNegativeSentiment(window []Signal, cfg DetectionConfig) SentimentSpikeResult {
	result := SentimentSpikeResult{SampleSize: len(window)}
	if len(window) == 0 {
		return result
	}

	for i := range window {
		if window[i].Sentiment < cfg.NegativeBelow {
			result.NegativeCount++
		}
	}
	result.Percentage = float64(result.NegativeCount) / float64(len(window)) * 100

	if len(window) < cfg.SentimentSampleFloor {
		return result
	}

	result.Spike = float64(result.NegativeCount)/float64(len(window)) > cfg.NegativeFraction
	return result
}
