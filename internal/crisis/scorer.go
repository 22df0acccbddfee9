// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package crisis

// Severity level thresholds over the composite 0-100 score.
const (
	scoreCritical = 70
	scoreHigh     = 50
	scoreMedium   = 30
)

// Score fuses the three detector outputs into a composite 0-100 score and a
// discrete severity level. Contributions are additive and capped per signal
// family; a result with no triggers scores 0 and must not create a crisis.
func Score(result DetectionResult) (int, Severity) {
	score := 0

	if result.Volume.Spike {
		switch {
		case result.Volume.Multiplier >= 10:
			score += 30
		case result.Volume.Multiplier >= 5:
			score += 20
		default:
			score += 10
		}
	}

	if result.Sentiment.Spike {
		switch {
		case result.Sentiment.Percentage >= 80:
			score += 40
		case result.Sentiment.Percentage >= 70:
			score += 30
		default:
			score += 20
		}
	}

	if result.Viral.Viral {
		switch {
		case result.Viral.TotalReach > 10_000_000:
			score += 30
		case result.Viral.TotalReach > 5_000_000:
			score += 20
		default:
			score += 15
		}
	}

	return score, severityForScore(score)
}

func severityForScore(score int) Severity {
	switch {
	case score >= scoreCritical:
		return SeverityCritical
	case score >= scoreHigh:
		return SeverityHigh
	case score >= scoreMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
