// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package crisis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pulseguard/pulseguard/internal/textmatch"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func int64Ptr(v int64) *int64 { return &v }

func newTestRuleEngine() *RuleEngine {
	return NewRuleEngine(NewLifecycle(NewMemoryRepository()))
}

func TestRuleEngine_CreateRule(t *testing.T) {
	engine := newTestRuleEngine()

	_, err := engine.CreateRule("empty", RuleTriggers{}, RuleActions{})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("empty triggers err = %v, want ErrValidation", err)
	}

	_, err = engine.CreateRule("", RuleTriggers{VolumeThreshold: intPtr(10)}, RuleActions{})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("empty name err = %v, want ErrValidation", err)
	}

	rule, err := engine.CreateRule("volume watch", RuleTriggers{VolumeThreshold: intPtr(10)}, RuleActions{})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if rule.ID == "" || !rule.IsActive {
		t.Errorf("rule = %+v, want active with id", rule)
	}

	got, err := engine.GetRule(rule.ID)
	if err != nil {
		t.Fatalf("GetRule: %v", err)
	}
	if got.Name != "volume watch" {
		t.Errorf("Name = %q, want volume watch", got.Name)
	}

	if _, err := engine.GetRule("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing rule err = %v, want ErrNotFound", err)
	}
}

func TestRuleMatches(t *testing.T) {
	at := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)

	bucket := TimeBucket{Key: BucketKey(at)}
	for i := 0; i < 10; i++ {
		s := Signal{ID: "s", CapturedAt: at}
		if i < 6 {
			s.Sentiment = -0.5
		} else {
			s.Sentiment = 0.2
		}
		bucket.Signals = append(bucket.Signals, s)
	}

	tests := []struct {
		name     string
		triggers RuleTriggers
		signal   Signal
		want     bool
	}{
		{
			name:     "volume threshold met",
			triggers: RuleTriggers{VolumeThreshold: intPtr(10)},
			want:     true,
		},
		{
			name:     "volume threshold not met",
			triggers: RuleTriggers{VolumeThreshold: intPtr(11)},
			want:     false,
		},
		{
			name:     "negative percentage met",
			triggers: RuleTriggers{NegativeSentimentPct: floatPtr(60)},
			want:     true,
		},
		{
			name:     "negative percentage not met",
			triggers: RuleTriggers{NegativeSentimentPct: floatPtr(61)},
			want:     false,
		},
		{
			name:     "reach threshold on the signal itself",
			triggers: RuleTriggers{ReachThreshold: int64Ptr(5000)},
			signal:   Signal{Reach: 5000},
			want:     true,
		},
		{
			name:     "reach below threshold",
			triggers: RuleTriggers{ReachThreshold: int64Ptr(5000)},
			signal:   Signal{Reach: 4999},
			want:     false,
		},
		{
			name:     "keyword matches case-insensitively",
			triggers: RuleTriggers{Keywords: []string{"RECALL"}},
			signal:   Signal{Content: "the product recall is trending"},
			want:     true,
		},
		{
			name:     "keyword absent",
			triggers: RuleTriggers{Keywords: []string{"lawsuit"}},
			signal:   Signal{Content: "great product"},
			want:     false,
		},
		{
			name: "or semantics: one satisfied threshold wins",
			triggers: RuleTriggers{
				VolumeThreshold: intPtr(1000),
				Keywords:        []string{"boycott"},
			},
			signal: Signal{Content: "calls to boycott grow"},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var keywords *textmatch.KeywordMatcher
			if len(tt.triggers.Keywords) > 0 {
				keywords = textmatch.NewKeywordMatcher(tt.triggers.Keywords)
			}
			if got := ruleMatches(tt.triggers, keywords, tt.signal, bucket); got != tt.want {
				t.Errorf("ruleMatches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRuleEngine_Evaluate(t *testing.T) {
	ctx := context.Background()
	engine := newTestRuleEngine()
	at := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)

	rule, _ := engine.CreateRule("keyword", RuleTriggers{Keywords: []string{"outage"}}, RuleActions{})
	engine.CreateRule("volume", RuleTriggers{VolumeThreshold: intPtr(1000)}, RuleActions{})

	signal := Signal{ID: "s1", Content: "major outage reported", CapturedAt: at}
	bucket := TimeBucket{Key: BucketKey(at), Signals: []Signal{signal}}

	matches := engine.Evaluate(ctx, signal, bucket)
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if matches[0].Rule.ID != rule.ID {
		t.Errorf("matched rule %s, want %s", matches[0].Rule.ID, rule.ID)
	}
	if matches[0].Rule.TriggeredCount != 1 {
		t.Errorf("TriggeredCount = %d, want 1", matches[0].Rule.TriggeredCount)
	}

	// A second matching signal increments the count.
	engine.Evaluate(ctx, signal, bucket)
	got, _ := engine.GetRule(rule.ID)
	if got.TriggeredCount != 2 {
		t.Errorf("TriggeredCount = %d, want 2", got.TriggeredCount)
	}
}

func TestRuleEngine_Evaluate_InactiveSkipped(t *testing.T) {
	ctx := context.Background()
	engine := newTestRuleEngine()
	at := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)

	rule, _ := engine.CreateRule("keyword", RuleTriggers{Keywords: []string{"outage"}}, RuleActions{})
	if _, err := engine.SetRuleActive(rule.ID, false); err != nil {
		t.Fatalf("SetRuleActive: %v", err)
	}

	signal := Signal{ID: "s1", Content: "major outage reported", CapturedAt: at}
	bucket := TimeBucket{Key: BucketKey(at), Signals: []Signal{signal}}

	if matches := engine.Evaluate(ctx, signal, bucket); len(matches) != 0 {
		t.Errorf("inactive rule matched: %d matches", len(matches))
	}
}

func TestRuleEngine_Evaluate_AutoEscalatesOpenCrisis(t *testing.T) {
	ctx := context.Background()
	lc := NewLifecycle(NewMemoryRepository())
	engine := NewRuleEngine(lc)
	at := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)

	open, _, _, _ := lc.ProcessDetection(ctx, testBucket(BucketKey(at), 20), mediumDetection())

	engine.CreateRule("escalator", RuleTriggers{Keywords: []string{"outage"}}, RuleActions{
		AutoEscalate: true,
		AssignTo:     "oncall",
	})

	signal := Signal{ID: "s1", Content: "outage", CapturedAt: at}
	matches := engine.Evaluate(ctx, signal, TimeBucket{Key: BucketKey(at), Signals: []Signal{signal}})
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if matches[0].Escalation == nil {
		t.Fatal("expected an escalation record")
	}

	got, _ := lc.Get(ctx, open.ID)
	if !got.Escalated {
		t.Error("open crisis not escalated")
	}
	if got.AssignedTo != "oncall" {
		t.Errorf("AssignedTo = %q, want oncall", got.AssignedTo)
	}
}

func TestRuleEngine_Evaluate_AssignWithoutAutoEscalate(t *testing.T) {
	ctx := context.Background()
	lc := NewLifecycle(NewMemoryRepository())
	engine := NewRuleEngine(lc)
	at := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)

	open, _, _, _ := lc.ProcessDetection(ctx, testBucket(BucketKey(at), 20), mediumDetection())

	engine.CreateRule("assigner", RuleTriggers{Keywords: []string{"outage"}}, RuleActions{
		AssignTo: "oncall",
	})

	signal := Signal{ID: "s1", Content: "outage", CapturedAt: at}
	matches := engine.Evaluate(ctx, signal, TimeBucket{Key: BucketKey(at), Signals: []Signal{signal}})
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if matches[0].Escalation != nil {
		t.Error("non-escalating rule produced an escalation record")
	}
	if matches[0].Crisis == nil || matches[0].Crisis.AssignedTo != "oncall" {
		t.Fatalf("match crisis = %+v, want assigned to oncall", matches[0].Crisis)
	}

	got, _ := lc.Get(ctx, open.ID)
	if got.AssignedTo != "oncall" {
		t.Errorf("AssignedTo = %q, want oncall", got.AssignedTo)
	}
	if got.Escalated {
		t.Error("assignment must not escalate the crisis")
	}
}

func TestRuleEngine_Evaluate_AssignWithoutOpenCrisis(t *testing.T) {
	ctx := context.Background()
	engine := newTestRuleEngine()
	at := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)

	engine.CreateRule("assigner", RuleTriggers{Keywords: []string{"outage"}}, RuleActions{
		AssignTo: "oncall",
	})

	signal := Signal{ID: "s1", Content: "outage", CapturedAt: at}
	matches := engine.Evaluate(ctx, signal, TimeBucket{Key: BucketKey(at), Signals: []Signal{signal}})
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if matches[0].Crisis != nil {
		t.Errorf("crisis = %+v, want none without an open crisis", matches[0].Crisis)
	}
}

func TestRuleEngine_Evaluate_AutoEscalateCreatesMinimalCrisis(t *testing.T) {
	ctx := context.Background()
	lc := NewLifecycle(NewMemoryRepository())
	engine := NewRuleEngine(lc)
	at := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)

	engine.CreateRule("escalator", RuleTriggers{Keywords: []string{"outage"}}, RuleActions{AutoEscalate: true})

	signal := Signal{ID: "s1", Content: "outage", Reach: 500, CapturedAt: at}
	matches := engine.Evaluate(ctx, signal, TimeBucket{Key: BucketKey(at), Signals: []Signal{signal}})
	if len(matches) != 1 || matches[0].Crisis == nil {
		t.Fatalf("matches = %+v, want one with a crisis", matches)
	}

	c := matches[0].Crisis
	if !c.Escalated {
		t.Error("minimal crisis not escalated")
	}
	if len(c.MentionIDs) != 1 || c.MentionIDs[0] != "s1" {
		t.Errorf("MentionIDs = %v, want [s1]", c.MentionIDs)
	}
}

func TestRuleEngine_Evaluate_AlreadyEscalatedTolerated(t *testing.T) {
	ctx := context.Background()
	lc := NewLifecycle(NewMemoryRepository())
	engine := NewRuleEngine(lc)
	at := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)

	open, _, _, _ := lc.ProcessDetection(ctx, testBucket(BucketKey(at), 20), mediumDetection())
	if _, err := lc.Escalate(ctx, open.ID, "manual", "alice"); err != nil {
		t.Fatalf("Escalate: %v", err)
	}

	engine.CreateRule("escalator", RuleTriggers{Keywords: []string{"outage"}}, RuleActions{AutoEscalate: true})

	signal := Signal{ID: "s1", Content: "outage", CapturedAt: at}
	matches := engine.Evaluate(ctx, signal, TimeBucket{Key: BucketKey(at), Signals: []Signal{signal}})
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if matches[0].Escalation != nil {
		t.Error("already-escalated crisis must not produce a second record")
	}

	recs, _ := lc.repo.ListEscalations(ctx, open.ID)
	if len(recs) != 1 {
		t.Errorf("escalation records = %d, want 1", len(recs))
	}
}

func TestRuleEngine_ListRules_Order(t *testing.T) {
	engine := newTestRuleEngine()
	a, _ := engine.CreateRule("a", RuleTriggers{VolumeThreshold: intPtr(1)}, RuleActions{})
	b, _ := engine.CreateRule("b", RuleTriggers{VolumeThreshold: intPtr(2)}, RuleActions{})

	rules := engine.ListRules()
	if len(rules) != 2 || rules[0].ID != a.ID || rules[1].ID != b.ID {
		t.Errorf("ListRules not in creation order: %+v", rules)
	}
}
