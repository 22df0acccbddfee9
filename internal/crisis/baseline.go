// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package crisis

import "time"

// DefaultBaselineHours is the lookback used to derive "normal" hourly volume.
const DefaultBaselineHours = 24

// BaselineCalculator computes a rolling historical average volume from the
// buckets preceding the current one.
type BaselineCalculator struct {
	store BucketStore
	hours int
}

// NewBaselineCalculator creates a calculator over the given store.
// hours <= 0 falls back to DefaultBaselineHours.
func NewBaselineCalculator(store BucketStore, hours int) *BaselineCalculator {
	if hours <= 0 {
		hours = DefaultBaselineHours
	}
	return &BaselineCalculator{store: store, hours: hours}
}

// Compute averages signal counts over the hourly buckets strictly preceding
// currentKey. Empty hours are excluded from both numerator and denominator:
// treating them as zero would bias the baseline toward zero during cold
// start or sparse periods. SampleCount == 0 means spike detection must be
// disabled, not that the baseline is zero.
func (c *BaselineCalculator) Compute(currentKey time.Time) Baseline {
	buckets := c.store.PrecedingBuckets(currentKey, c.hours)
	if len(buckets) == 0 {
		return Baseline{}
	}

	total := 0
	for i := range buckets {
		total += len(buckets[i].Signals)
	}

	return Baseline{
		Average:     float64(total) / float64(len(buckets)),
		SampleCount: len(buckets),
	}
}
