// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package crisis

import (
	"context"
	"time"
)

// BucketDuration is the fixed aggregation window for signals.
// All baseline and detection math assumes 1-hour buckets.
const BucketDuration = time.Hour

// Severity indicates crisis urgency derived from the composite score.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the sort rank of a severity (critical highest).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Status is the lifecycle state of a crisis. Resolved is terminal;
// a recurrence creates a new crisis subject to the cooldown guard.
type Status string

const (
	StatusActive   Status = "active"
	StatusResolved Status = "resolved"
)

// Priority classifies an escalation record.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Signal is one observed brand mention. Sentiment and reach arrive
// already computed from the upstream producer. Immutable once appended.
type Signal struct {
	ID         string    `json:"id"`
	Content    string    `json:"content,omitempty"`
	Source     string    `json:"source,omitempty"`
	Sentiment  float64   `json:"sentiment"` // [-1, 1]
	Reach      int64     `json:"reach"`     // >= 0
	CapturedAt time.Time `json:"captured_at"`
}

// TimeBucket groups signals into a fixed 1-hour window. Owned exclusively
// by the bucket store; consumers always receive snapshot copies.
type TimeBucket struct {
	Key       time.Time `json:"key"` // floor(capturedAt, 1h)
	StartedAt time.Time `json:"started_at"`
	Signals   []Signal  `json:"signals"`
}

// Baseline is the rolling historical average volume. SampleCount == 0 is a
// valid cold-start state and means spike detection is disabled, not that
// the baseline is zero.
type Baseline struct {
	Average     float64 `json:"average"`
	SampleCount int     `json:"sample_count"`
}

// TriggerSet records which detectors fired for a crisis.
type TriggerSet struct {
	VolumeSpike       bool `json:"volume_spike"`
	NegativeSentiment bool `json:"negative_sentiment"`
	ViralSpread       bool `json:"viral_spread"`
}

// Any reports whether at least one detector fired.
func (t TriggerSet) Any() bool {
	return t.VolumeSpike || t.NegativeSentiment || t.ViralSpread
}

// Overlaps reports whether two trigger sets share at least one trigger.
func (t TriggerSet) Overlaps(o TriggerSet) bool {
	return (t.VolumeSpike && o.VolumeSpike) ||
		(t.NegativeSentiment && o.NegativeSentiment) ||
		(t.ViralSpread && o.ViralSpread)
}

// TimelineEntry is one append-only audit record on a crisis.
type TimelineEntry struct {
	Event  string    `json:"event"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// Crisis is the stateful entity managed by the lifecycle. Created only on a
// positive detection, mutated only through lifecycle operations, never
// deleted.
type Crisis struct {
	ID               string          `json:"id"`
	Status           Status          `json:"status"`
	Severity         Severity        `json:"severity"`
	Score            int             `json:"score"`
	Triggers         TriggerSet      `json:"triggers"`
	BucketKey        time.Time       `json:"bucket_key"`
	MentionIDs       []string        `json:"mention_ids"`
	TotalReach       int64           `json:"total_reach"`
	AverageSentiment float64         `json:"average_sentiment"`
	Escalated        bool            `json:"escalated"`
	EscalatedAt      *time.Time      `json:"escalated_at,omitempty"`
	AssignedTo       string          `json:"assigned_to,omitempty"`
	Notes            []string        `json:"notes,omitempty"`
	Timeline         []TimelineEntry `json:"timeline"`
	DetectedAt       time.Time       `json:"detected_at"`
	ResolvedAt       *time.Time      `json:"resolved_at,omitempty"`
}

// Clone returns a deep copy so callers can never mutate repository state.
func (c *Crisis) Clone() *Crisis {
	out := *c
	out.MentionIDs = append([]string(nil), c.MentionIDs...)
	out.Notes = append([]string(nil), c.Notes...)
	out.Timeline = append([]TimelineEntry(nil), c.Timeline...)
	if c.EscalatedAt != nil {
		t := *c.EscalatedAt
		out.EscalatedAt = &t
	}
	if c.ResolvedAt != nil {
		t := *c.ResolvedAt
		out.ResolvedAt = &t
	}
	return &out
}

// EscalationRecord is the append-only record of one escalation action.
type EscalationRecord struct {
	ID          string    `json:"id"`
	CrisisID    string    `json:"crisis_id"`
	Reason      string    `json:"reason"`
	Priority    Priority  `json:"priority"`
	EscalatedAt time.Time `json:"escalated_at"`
	EscalatedBy string    `json:"escalated_by"`
}

// RuleTriggers are the optional thresholds of a user-authored rule.
// Nil fields are ignored during evaluation, not treated as zero.
type RuleTriggers struct {
	// VolumeThreshold matches when the signal's bucket holds at least
	// this many signals.
	VolumeThreshold *int `json:"volume_threshold,omitempty"`

	// NegativeSentimentPct matches when the percentage of negative
	// signals in the bucket reaches this value (0-100).
	NegativeSentimentPct *float64 `json:"negative_sentiment_percentage,omitempty"`

	// ReachThreshold matches when a single signal's reach reaches this value.
	ReachThreshold *int64 `json:"reach_threshold,omitempty"`

	// Keywords match case-insensitively as substrings of signal content.
	Keywords []string `json:"keywords,omitempty"`
}

// Empty reports whether no threshold is configured at all.
func (t RuleTriggers) Empty() bool {
	return t.VolumeThreshold == nil && t.NegativeSentimentPct == nil &&
		t.ReachThreshold == nil && len(t.Keywords) == 0
}

// RuleActions describe what happens when a rule matches.
type RuleActions struct {
	AutoEscalate bool     `json:"auto_escalate"`
	NotifyUsers  []string `json:"notify_users,omitempty"`
	AssignTo     string   `json:"assign_to,omitempty"`
}

// CrisisRule is a user-authored escalation policy, independent of the
// built-in detectors.
type CrisisRule struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Triggers       RuleTriggers `json:"triggers"`
	Actions        RuleActions  `json:"actions"`
	IsActive       bool         `json:"is_active"`
	TriggeredCount int64        `json:"triggered_count"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// BucketStore is the append-only substrate the pipeline reads from.
// Implementations must be safe for concurrent producers and must return
// snapshot copies so a detection pass never observes a torn bucket.
type BucketStore interface {
	// Append inserts a signal into the bucket for its capture hour,
	// creating the bucket if absent, and returns the bucket key.
	Append(signal Signal) time.Time

	// Bucket returns a snapshot of the bucket for key, or false if no
	// signal has arrived in that hour.
	Bucket(key time.Time) (TimeBucket, bool)

	// PrecedingBuckets returns snapshots of up to n buckets strictly
	// before key, oldest first, skipping missing hours.
	PrecedingBuckets(key time.Time, n int) []TimeBucket
}

// Repository stores crises and escalation records. The in-memory
// implementation is the default; a persistence collaborator can swap in
// a durable one without touching detection logic.
type Repository interface {
	SaveCrisis(ctx context.Context, c *Crisis) error
	GetCrisis(ctx context.Context, id string) (*Crisis, error)
	ListCrises(ctx context.Context) ([]*Crisis, error)
	SaveEscalation(ctx context.Context, rec *EscalationRecord) error
	ListEscalations(ctx context.Context, crisisID string) ([]*EscalationRecord, error)
}

// EventType identifies an outbound crisis event.
type EventType string

const (
	EventCrisisDetected  EventType = "crisis.detected"
	EventCrisisEscalated EventType = "crisis.escalated"
	EventCrisisResolved  EventType = "crisis.resolved"
	EventRuleTriggered   EventType = "rule.triggered"
)

// Event is the message published to the outbound bus. Notification delivery
// is decoupled from detection: a failed delivery never affects correctness.
type Event struct {
	Type        EventType         `json:"type"`
	Crisis      *Crisis           `json:"crisis,omitempty"`
	Escalation  *EscalationRecord `json:"escalation,omitempty"`
	Rule        *CrisisRule       `json:"rule,omitempty"`
	NotifyUsers []string          `json:"notify_users,omitempty"`
	At          time.Time         `json:"at"`
}

// EventSink receives outbound events. The events package provides the
// Watermill-backed implementation.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}
