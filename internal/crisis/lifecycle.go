// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package crisis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulseguard/pulseguard/internal/logging"
)

// Timeline event names. The timeline is the audit trail; every lifecycle
// mutation appends exactly one entry.
const (
	timelineDetected         = "crisis_detected"
	timelineEscalated        = "crisis_escalated"
	timelineStatusUpdated    = "status_updated"
	timelineDuplicateResolve = "duplicate_resolve_ignored"
	timelineAssigned         = "assigned"
	timelineNoteAdded        = "note_added"
)

// Lifecycle owns crisis state transitions: detect, escalate, assign,
// resolve. Mutations are serialized per crisis id; the cooldown dedup check
// is serialized per bucket key so concurrent detection passes for the same
// hour cannot race each other into duplicate crises, while unrelated
// buckets stay concurrent.
type Lifecycle struct {
	repo Repository

	mu          sync.Mutex
	crisisLocks map[string]*sync.Mutex
	bucketLocks map[time.Time]*sync.Mutex

	// injectable for tests
	now   func() time.Time
	newID func() string
}

// NewLifecycle creates a lifecycle over the given repository.
func NewLifecycle(repo Repository) *Lifecycle {
	return &Lifecycle{
		repo:        repo,
		crisisLocks: make(map[string]*sync.Mutex),
		bucketLocks: make(map[time.Time]*sync.Mutex),
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
	}
}

func (l *Lifecycle) crisisLock(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.crisisLocks[id]
	if !ok {
		m = &sync.Mutex{}
		l.crisisLocks[id] = m
	}
	return m
}

func (l *Lifecycle) bucketLock(key time.Time) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.bucketLocks[key]
	if !ok {
		m = &sync.Mutex{}
		l.bucketLocks[key] = m
	}
	return m
}

// ProcessDetection turns a positive detection into a crisis, subject to the
// cooldown guard: if an active crisis already exists for the same bucket
// window with an overlapping trigger set, that crisis is returned unchanged
// instead of creating a duplicate.
//
// Returns the crisis, whether it was newly created, and the escalation
// record when critical severity auto-escalated it synchronously.
func (l *Lifecycle) ProcessDetection(ctx context.Context, bucket TimeBucket, result DetectionResult) (*Crisis, bool, *EscalationRecord, error) {
	triggers := result.Triggers()
	if !triggers.Any() {
		return nil, false, nil, nil
	}

	// The read-then-write dedup check must hold the bucket lock end to end.
	lock := l.bucketLock(bucket.Key)
	lock.Lock()
	defer lock.Unlock()

	existing, err := l.findActiveInBucket(ctx, bucket.Key, triggers)
	if err != nil {
		return nil, false, nil, err
	}
	if existing != nil {
		return existing, false, nil, nil
	}

	score, severity := Score(result)
	now := l.now()

	c := &Crisis{
		ID:         l.newID(),
		Status:     StatusActive,
		Severity:   severity,
		Score:      score,
		Triggers:   triggers,
		BucketKey:  bucket.Key,
		DetectedAt: now,
		Timeline: []TimelineEntry{{
			Event:  timelineDetected,
			Detail: triggerSummary(triggers),
			At:     now,
		}},
	}

	var totalSentiment float64
	for i := range bucket.Signals {
		c.MentionIDs = append(c.MentionIDs, bucket.Signals[i].ID)
		c.TotalReach += bucket.Signals[i].Reach
		totalSentiment += bucket.Signals[i].Sentiment
	}
	if len(bucket.Signals) > 0 {
		c.AverageSentiment = totalSentiment / float64(len(bucket.Signals))
	}

	if err := l.repo.SaveCrisis(ctx, c); err != nil {
		return nil, false, nil, fmt.Errorf("save crisis: %w", err)
	}

	logging.Info().
		Str("crisis_id", c.ID).
		Str("severity", string(severity)).
		Int("score", score).
		Int("mentions", len(c.MentionIDs)).
		Msg("crisis detected")

	var rec *EscalationRecord
	if severity == SeverityCritical {
		rec, err = l.Escalate(ctx, c.ID, "auto", "system")
		if err != nil {
			return nil, false, nil, fmt.Errorf("auto-escalate: %w", err)
		}
		c, err = l.repo.GetCrisis(ctx, c.ID)
		if err != nil {
			return nil, false, nil, err
		}
	}

	return c, true, rec, nil
}

// findActiveInBucket returns an active crisis whose detection falls in the
// given bucket window with an overlapping trigger set, or nil.
func (l *Lifecycle) findActiveInBucket(ctx context.Context, key time.Time, triggers TriggerSet) (*Crisis, error) {
	all, err := l.repo.ListCrises(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if c.Status == StatusActive && c.BucketKey.Equal(key) && c.Triggers.Overlaps(triggers) {
			return c, nil
		}
	}
	return nil, nil
}

// Escalate promotes a crisis to higher-priority handling. A crisis cannot
// be escalated once resolved, and not twice: escalation records are
// append-only with at most one per crisis.
func (l *Lifecycle) Escalate(ctx context.Context, id, reason, by string) (*EscalationRecord, error) {
	lock := l.crisisLock(id)
	lock.Lock()
	defer lock.Unlock()

	c, err := l.repo.GetCrisis(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusResolved {
		return nil, fmt.Errorf("%w: cannot escalate resolved crisis %s", ErrInvalidState, id)
	}
	if c.Escalated {
		return nil, fmt.Errorf("%w: crisis %s already escalated", ErrInvalidState, id)
	}

	now := l.now()
	c.Escalated = true
	c.EscalatedAt = &now
	c.Timeline = append(c.Timeline, TimelineEntry{
		Event:  timelineEscalated,
		Detail: reason,
		At:     now,
	})

	priority := PriorityHigh
	if c.Severity == SeverityCritical {
		priority = PriorityUrgent
	}
	rec := &EscalationRecord{
		ID:          l.newID(),
		CrisisID:    id,
		Reason:      reason,
		Priority:    priority,
		EscalatedAt: now,
		EscalatedBy: by,
	}

	if err := l.repo.SaveCrisis(ctx, c); err != nil {
		return nil, fmt.Errorf("save crisis: %w", err)
	}
	if err := l.repo.SaveEscalation(ctx, rec); err != nil {
		return nil, fmt.Errorf("save escalation: %w", err)
	}

	logging.Info().
		Str("crisis_id", id).
		Str("reason", reason).
		Str("priority", string(priority)).
		Msg("crisis escalated")

	return rec, nil
}

// UpdateStatus transitions a crisis between statuses. Resolving an
// already-resolved crisis is an idempotent no-op that keeps the original
// ResolvedAt but still appends a timeline entry for audit completeness.
// Re-opening a resolved crisis is not supported.
func (l *Lifecycle) UpdateStatus(ctx context.Context, id string, status Status, note string) (*Crisis, error) {
	if status != StatusActive && status != StatusResolved {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	lock := l.crisisLock(id)
	lock.Lock()
	defer lock.Unlock()

	c, err := l.repo.GetCrisis(ctx, id)
	if err != nil {
		return nil, err
	}

	now := l.now()

	if c.Status == StatusResolved {
		if status == StatusActive {
			return nil, fmt.Errorf("%w: crisis %s is resolved; re-opening is not supported", ErrInvalidState, id)
		}
		c.Timeline = append(c.Timeline, TimelineEntry{
			Event: timelineDuplicateResolve,
			At:    now,
		})
		if err := l.repo.SaveCrisis(ctx, c); err != nil {
			return nil, fmt.Errorf("save crisis: %w", err)
		}
		return c, nil
	}

	c.Status = status
	if status == StatusResolved {
		c.ResolvedAt = &now
	}
	c.Timeline = append(c.Timeline, TimelineEntry{
		Event:  timelineStatusUpdated,
		Detail: string(status),
		At:     now,
	})
	if note != "" {
		c.Notes = append(c.Notes, note)
		c.Timeline = append(c.Timeline, TimelineEntry{
			Event:  timelineNoteAdded,
			Detail: note,
			At:     now,
		})
	}

	if err := l.repo.SaveCrisis(ctx, c); err != nil {
		return nil, fmt.Errorf("save crisis: %w", err)
	}

	logging.Info().Str("crisis_id", id).Str("status", string(status)).Msg("crisis status updated")
	return c, nil
}

// Assign hands a crisis to a user. Allowed in any non-resolved state;
// last assign wins.
func (l *Lifecycle) Assign(ctx context.Context, id, user string) (*Crisis, error) {
	if user == "" {
		return nil, fmt.Errorf("%w: assignee required", ErrValidation)
	}

	lock := l.crisisLock(id)
	lock.Lock()
	defer lock.Unlock()

	c, err := l.repo.GetCrisis(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusResolved {
		return nil, fmt.Errorf("%w: cannot assign resolved crisis %s", ErrInvalidState, id)
	}

	c.AssignedTo = user
	c.Timeline = append(c.Timeline, TimelineEntry{
		Event:  timelineAssigned,
		Detail: user,
		At:     l.now(),
	})

	if err := l.repo.SaveCrisis(ctx, c); err != nil {
		return nil, fmt.Errorf("save crisis: %w", err)
	}
	return c, nil
}

// Get retrieves a crisis by id.
func (l *Lifecycle) Get(ctx context.Context, id string) (*Crisis, error) {
	return l.repo.GetCrisis(ctx, id)
}

// MostRecentOpen returns the latest active crisis by detection time, or nil
// when everything is resolved. Used by the rule engine's auto-escalate path.
func (l *Lifecycle) MostRecentOpen(ctx context.Context) (*Crisis, error) {
	all, err := l.repo.ListCrises(ctx)
	if err != nil {
		return nil, err
	}

	var open []*Crisis
	for _, c := range all {
		if c.Status == StatusActive {
			open = append(open, c)
		}
	}
	if len(open) == 0 {
		return nil, nil
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].DetectedAt.After(open[j].DetectedAt)
	})
	return open[0], nil
}

// CreateMinimal creates a bare active crisis attributed to a rule match,
// used when a rule wants to escalate but no crisis is open.
func (l *Lifecycle) CreateMinimal(ctx context.Context, detail string, signal Signal) (*Crisis, error) {
	now := l.now()
	c := &Crisis{
		ID:         l.newID(),
		Status:     StatusActive,
		Severity:   SeverityLow,
		BucketKey:  BucketKey(signal.CapturedAt),
		MentionIDs: []string{signal.ID},
		TotalReach: signal.Reach,
		DetectedAt: now,
		Timeline: []TimelineEntry{{
			Event:  timelineDetected,
			Detail: detail,
			At:     now,
		}},
	}
	if err := l.repo.SaveCrisis(ctx, c); err != nil {
		return nil, fmt.Errorf("save crisis: %w", err)
	}
	return c, nil
}

func triggerSummary(t TriggerSet) string {
	s := ""
	if t.VolumeSpike {
		s += "volume_spike "
	}
	if t.NegativeSentiment {
		s += "negative_sentiment "
	}
	if t.ViralSpread {
		s += "viral_spread "
	}
	if s == "" {
		return s
	}
	return s[:len(s)-1]
}
