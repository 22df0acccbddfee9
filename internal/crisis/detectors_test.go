// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package crisis

import (
	"fmt"
	"testing"
	"time"
)

func signalsN(n int, at time.Time) []Signal {
	out := make([]Signal, n)
	for i := range out {
		out[i] = Signal{ID: fmt.Sprintf("s%d", i), CapturedAt: at}
	}
	return out
}

func TestDetectVolumeSpike(t *testing.T) {
	cfg := DefaultDetectionConfig()
	at := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		window         []Signal
		baseline       Baseline
		wantSpike      bool
		wantMultiplier float64
	}{
		{
			name:           "no history never spikes",
			window:         signalsN(100, at),
			baseline:       Baseline{},
			wantSpike:      false,
			wantMultiplier: 100,
		},
		{
			name:           "below multiplier threshold",
			window:         signalsN(5, at),
			baseline:       Baseline{Average: 2, SampleCount: 10},
			wantSpike:      false,
			wantMultiplier: 2.5,
		},
		{
			name:           "exactly at threshold does not fire",
			window:         signalsN(6, at),
			baseline:       Baseline{Average: 2, SampleCount: 10},
			wantSpike:      false,
			wantMultiplier: 3,
		},
		{
			name:           "above threshold fires",
			window:         signalsN(7, at),
			baseline:       Baseline{Average: 2, SampleCount: 10},
			wantSpike:      true,
			wantMultiplier: 3.5,
		},
		{
			name:           "sub-unit baseline clamps multiplier denominator",
			window:         signalsN(4, at),
			baseline:       Baseline{Average: 0.25, SampleCount: 10},
			wantSpike:      true,
			wantMultiplier: 4,
		},
		{
			name:           "empty window",
			window:         nil,
			baseline:       Baseline{Average: 3, SampleCount: 10},
			wantSpike:      false,
			wantMultiplier: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectVolumeSpike(tt.window, tt.baseline, cfg)
			if got.Spike != tt.wantSpike {
				t.Errorf("Spike = %v, want %v", got.Spike, tt.wantSpike)
			}
			if got.Multiplier != tt.wantMultiplier {
				t.Errorf("Multiplier = %v, want %v", got.Multiplier, tt.wantMultiplier)
			}
			if got.CurrentVolume != len(tt.window) {
				t.Errorf("CurrentVolume = %d, want %d", got.CurrentVolume, len(tt.window))
			}
		})
	}
}

func TestDetectNegativeSentiment(t *testing.T) {
	cfg := DefaultDetectionConfig()
	at := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)

	mixed := func(negative, positive int) []Signal {
		var out []Signal
		for i := 0; i < negative; i++ {
			out = append(out, Signal{ID: fmt.Sprintf("n%d", i), Sentiment: -0.8, CapturedAt: at})
		}
		for i := 0; i < positive; i++ {
			out = append(out, Signal{ID: fmt.Sprintf("p%d", i), Sentiment: 0.5, CapturedAt: at})
		}
		return out
	}

	tests := []struct {
		name      string
		window    []Signal
		wantSpike bool
		wantPct   float64
	}{
		{
			name:      "below sample floor never fires",
			window:    mixed(4, 0),
			wantSpike: false,
			wantPct:   100,
		},
		{
			name:      "majority negative fires",
			window:    mixed(7, 3),
			wantSpike: true,
			wantPct:   70,
		},
		{
			name:      "exactly at fraction does not fire",
			window:    mixed(6, 4),
			wantSpike: false,
			wantPct:   60,
		},
		{
			name: "boundary sentiment is not negative",
			window: append(mixed(0, 1), []Signal{
				{ID: "b1", Sentiment: -0.3, CapturedAt: at},
				{ID: "b2", Sentiment: -0.3, CapturedAt: at},
				{ID: "b3", Sentiment: -0.3, CapturedAt: at},
				{ID: "b4", Sentiment: -0.3, CapturedAt: at},
			}...),
			wantSpike: false,
			wantPct:   0,
		},
		{
			name:      "empty window",
			window:    nil,
			wantSpike: false,
			wantPct:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectNegativeSentiment(tt.window, cfg)
			if got.Spike != tt.wantSpike {
				t.Errorf("Spike = %v, want %v", got.Spike, tt.wantSpike)
			}
			if got.Percentage != tt.wantPct {
				t.Errorf("Percentage = %v, want %v", got.Percentage, tt.wantPct)
			}
		})
	}
}

func TestDetectViralSpread(t *testing.T) {
	cfg := DefaultDetectionConfig()
	at := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		window    []Signal
		wantViral bool
		wantReach int64
	}{
		{
			name: "high reach with burst fires",
			window: []Signal{
				{ID: "s1", Reach: 600_000, CapturedAt: at},
				{ID: "s2", Reach: 600_000, CapturedAt: at.Add(5 * time.Minute)},
			},
			wantViral: true,
			wantReach: 1_200_000,
		},
		{
			name: "faded burst does not fire",
			window: []Signal{
				{ID: "s1", Reach: 500_000, CapturedAt: at},
				{ID: "s2", Reach: 500_000, CapturedAt: at.Add(time.Minute)},
				{ID: "s3", Reach: 500_000, CapturedAt: at.Add(2 * time.Minute)},
				{ID: "s4", Reach: 100_000, CapturedAt: at.Add(55 * time.Minute)},
			},
			// Only s4 lands in the window ending at s4; rate 0.25 is below
			// the growth threshold despite the reach.
			wantViral: false,
			wantReach: 1_600_000,
		},
		{
			name: "spread-out history keeps growth rate low",
			window: []Signal{
				{ID: "s1", Reach: 500_000, CapturedAt: at},
				{ID: "s2", Reach: 500_000, CapturedAt: at.Add(10 * time.Minute)},
				{ID: "s3", Reach: 500_000, CapturedAt: at.Add(20 * time.Minute)},
				{ID: "s4", Reach: 0, CapturedAt: at.Add(55 * time.Minute)},
			},
			// Only s4 lands inside the window ending at s4.
			wantViral: false,
			wantReach: 1_500_000,
		},
		{
			name: "reach below threshold never fires",
			window: []Signal{
				{ID: "s1", Reach: 400_000, CapturedAt: at},
				{ID: "s2", Reach: 400_000, CapturedAt: at.Add(time.Minute)},
			},
			wantViral: false,
			wantReach: 800_000,
		},
		{
			name: "negative reach is ignored in the total",
			window: []Signal{
				{ID: "s1", Reach: 2_000_000, CapturedAt: at},
				{ID: "s2", Reach: -500_000, CapturedAt: at.Add(time.Minute)},
			},
			wantViral: true,
			wantReach: 2_000_000,
		},
		{
			name:      "empty window",
			window:    nil,
			wantViral: false,
			wantReach: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectViralSpread(tt.window, cfg)
			if got.Viral != tt.wantViral {
				t.Errorf("Viral = %v, want %v", got.Viral, tt.wantViral)
			}
			if got.TotalReach != tt.wantReach {
				t.Errorf("TotalReach = %d, want %d", got.TotalReach, tt.wantReach)
			}
		})
	}
}

func TestDetect_CombinesAllDetectors(t *testing.T) {
	cfg := DefaultDetectionConfig()
	at := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)

	var signals []Signal
	for i := 0; i < 10; i++ {
		signals = append(signals, Signal{
			ID:         fmt.Sprintf("s%d", i),
			Sentiment:  -0.9,
			Reach:      200_000,
			CapturedAt: at.Add(time.Duration(i) * time.Minute),
		})
	}

	bucket := TimeBucket{Key: BucketKey(at), Signals: signals}
	baseline := Baseline{Average: 1, SampleCount: 12}

	result := Detect(bucket, baseline, cfg)
	triggers := result.Triggers()

	if !triggers.VolumeSpike {
		t.Error("expected volume spike")
	}
	if !triggers.NegativeSentiment {
		t.Error("expected negative sentiment spike")
	}
	if !triggers.ViralSpread {
		t.Error("expected viral spread")
	}
	if !triggers.Any() {
		t.Error("Any() = false with all triggers set")
	}
}
