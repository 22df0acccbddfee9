// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package crisis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pulseguard/pulseguard/internal/logging"
	"github.com/pulseguard/pulseguard/internal/textmatch"
)

// RuleEngine evaluates user-authored CrisisRules against each incoming
// signal, independently of the built-in detectors. Rules are an OR over
// whatever thresholds their author configured; unset thresholds are
// ignored, never treated as zero.
type RuleEngine struct {
	lifecycle *Lifecycle

	mu       sync.RWMutex
	rules    map[string]*CrisisRule
	matchers map[string]*textmatch.KeywordMatcher
	order    []string

	newID func() string
}

// NewRuleEngine creates an engine bound to a lifecycle for auto-escalation.
func NewRuleEngine(lifecycle *Lifecycle) *RuleEngine {
	return &RuleEngine{
		lifecycle: lifecycle,
		rules:     make(map[string]*CrisisRule),
		matchers:  make(map[string]*textmatch.KeywordMatcher),
		newID:     func() string { return uuid.NewString() },
	}
}

// CreateRule validates and registers a rule. A rule with no thresholds at
// all can never match and is rejected.
func (e *RuleEngine) CreateRule(name string, triggers RuleTriggers, actions RuleActions) (*CrisisRule, error) {
	if triggers.Empty() {
		return nil, fmt.Errorf("%w: rule must configure at least one trigger threshold", ErrValidation)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: rule name required", ErrValidation)
	}

	now := e.lifecycle.now()
	rule := &CrisisRule{
		ID:        e.newID(),
		Name:      name,
		Triggers:  triggers,
		Actions:   actions,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	e.mu.Lock()
	e.rules[rule.ID] = rule
	if len(triggers.Keywords) > 0 {
		e.matchers[rule.ID] = textmatch.NewKeywordMatcher(triggers.Keywords)
	}
	e.order = append(e.order, rule.ID)
	e.mu.Unlock()

	logging.Info().Str("rule_id", rule.ID).Str("name", name).Msg("crisis rule created")
	return cloneRule(rule), nil
}

// GetRule retrieves a rule by id.
func (e *RuleEngine) GetRule(id string) (*CrisisRule, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rule, ok := e.rules[id]
	if !ok {
		return nil, fmt.Errorf("%w: rule %s", ErrNotFound, id)
	}
	return cloneRule(rule), nil
}

// ListRules returns all rules in creation order.
func (e *RuleEngine) ListRules() []*CrisisRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*CrisisRule, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, cloneRule(e.rules[id]))
	}
	return out
}

// SetRuleActive enables or disables a rule.
func (e *RuleEngine) SetRuleActive(id string, active bool) (*CrisisRule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rule, ok := e.rules[id]
	if !ok {
		return nil, fmt.Errorf("%w: rule %s", ErrNotFound, id)
	}
	rule.IsActive = active
	rule.UpdatedAt = e.lifecycle.now()
	return cloneRule(rule), nil
}

// RuleMatch is one rule that matched a signal. Escalation is set when the
// rule's auto-escalate action fired; Crisis is the crisis the rule's
// actions touched, when any.
type RuleMatch struct {
	Rule       *CrisisRule
	Escalation *EscalationRecord
	Crisis     *Crisis
}

// Evaluate checks every active rule against a signal and its bucket window
// and applies the matched rules' actions. Evaluation errors on one rule do
// not stop the remaining rules.
func (e *RuleEngine) Evaluate(ctx context.Context, signal Signal, bucket TimeBucket) []RuleMatch {
	e.mu.RLock()
	active := make([]*CrisisRule, 0, len(e.order))
	matchersByID := make(map[string]*textmatch.KeywordMatcher, len(e.matchers))
	for _, id := range e.order {
		if e.rules[id].IsActive {
			active = append(active, e.rules[id])
			matchersByID[id] = e.matchers[id]
		}
	}
	e.mu.RUnlock()

	var matches []RuleMatch
	for _, rule := range active {
		if !ruleMatches(rule.Triggers, matchersByID[rule.ID], signal, bucket) {
			continue
		}

		e.mu.Lock()
		rule.TriggeredCount++
		snapshot := cloneRule(rule)
		e.mu.Unlock()

		match := RuleMatch{Rule: snapshot}
		switch {
		case rule.Actions.AutoEscalate:
			rec, c, err := e.autoEscalate(ctx, snapshot, signal)
			if err != nil {
				logging.Warn().Err(err).Str("rule_id", rule.ID).Msg("rule auto-escalation failed")
			} else {
				match.Escalation = rec
				match.Crisis = c
			}
		case rule.Actions.AssignTo != "":
			c, err := e.assignOpen(ctx, snapshot)
			if err != nil {
				logging.Warn().Err(err).Str("rule_id", rule.ID).Msg("rule assignment failed")
			} else {
				match.Crisis = c
			}
		}
		matches = append(matches, match)
	}
	return matches
}

// autoEscalate escalates the most recent open crisis, creating a minimal
// rule-attributed crisis when none is open. An already-escalated crisis is
// left as is.
func (e *RuleEngine) autoEscalate(ctx context.Context, rule *CrisisRule, signal Signal) (*EscalationRecord, *Crisis, error) {
	c, err := e.lifecycle.MostRecentOpen(ctx)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		c, err = e.lifecycle.CreateMinimal(ctx, "rule:"+rule.ID, signal)
		if err != nil {
			return nil, nil, err
		}
	}

	rec, err := e.lifecycle.Escalate(ctx, c.ID, "rule:"+rule.ID, "rule-engine")
	if err != nil {
		if errors.Is(err, ErrInvalidState) {
			// Already escalated; nothing further to do.
			return nil, c, nil
		}
		return nil, nil, err
	}

	if rule.Actions.AssignTo != "" {
		if _, err := e.lifecycle.Assign(ctx, c.ID, rule.Actions.AssignTo); err != nil {
			logging.Warn().Err(err).Str("crisis_id", c.ID).Msg("rule assignment failed")
		}
	}

	c, err = e.lifecycle.Get(ctx, c.ID)
	if err != nil {
		return rec, nil, err
	}
	return rec, c, nil
}

// assignOpen applies a non-escalating rule's AssignTo to the most recent
// open crisis. No open crisis means nothing to assign; the rule match
// still counts.
func (e *RuleEngine) assignOpen(ctx context.Context, rule *CrisisRule) (*Crisis, error) {
	c, err := e.lifecycle.MostRecentOpen(ctx)
	if err != nil || c == nil {
		return nil, err
	}
	return e.lifecycle.Assign(ctx, c.ID, rule.Actions.AssignTo)
}

// ruleMatches applies the OR-semantics over configured thresholds.
func ruleMatches(t RuleTriggers, keywords *textmatch.KeywordMatcher, signal Signal, bucket TimeBucket) bool {
	if t.VolumeThreshold != nil && len(bucket.Signals) >= *t.VolumeThreshold {
		return true
	}

	if t.NegativeSentimentPct != nil && len(bucket.Signals) > 0 {
		negative := 0
		for i := range bucket.Signals {
			if bucket.Signals[i].Sentiment < 0 {
				negative++
			}
		}
		pct := float64(negative) / float64(len(bucket.Signals)) * 100
		if pct >= *t.NegativeSentimentPct {
			return true
		}
	}

	if t.ReachThreshold != nil && signal.Reach >= *t.ReachThreshold {
		return true
	}

	if keywords != nil && signal.Content != "" && keywords.Contains(signal.Content) {
		return true
	}

	return false
}

func cloneRule(r *CrisisRule) *CrisisRule {
	out := *r
	out.Triggers.Keywords = append([]string(nil), r.Triggers.Keywords...)
	out.Actions.NotifyUsers = append([]string(nil), r.Actions.NotifyUsers...)
	if r.Triggers.VolumeThreshold != nil {
		v := *r.Triggers.VolumeThreshold
		out.Triggers.VolumeThreshold = &v
	}
	if r.Triggers.NegativeSentimentPct != nil {
		v := *r.Triggers.NegativeSentimentPct
		out.Triggers.NegativeSentimentPct = &v
	}
	if r.Triggers.ReachThreshold != nil {
		v := *r.Triggers.ReachThreshold
		out.Triggers.ReachThreshold = &v
	}
	return &out
}
