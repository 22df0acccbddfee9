// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package crisis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulseguard/pulseguard/internal/logging"
	"github.com/pulseguard/pulseguard/internal/metrics"
)

// Engine is the facade over the whole pipeline: it normalizes and ingests
// signals, runs detection, evaluates user rules, drives the lifecycle, and
// publishes outbound events. All service-boundary operations go through it.
type Engine struct {
	store     BucketStore
	baseline  *BaselineCalculator
	lifecycle *Lifecycle
	rules     *RuleEngine
	sink      EventSink

	mu      sync.RWMutex
	cfg     DetectionConfig
	enabled bool
}

// NewEngine wires the pipeline together. sink may be nil, in which case no
// events are published (useful in tests).
func NewEngine(store BucketStore, repo Repository, cfg DetectionConfig, sink EventSink) *Engine {
	lifecycle := NewLifecycle(repo)
	return &Engine{
		store:     store,
		baseline:  NewBaselineCalculator(store, cfg.BaselineHours),
		lifecycle: lifecycle,
		rules:     NewRuleEngine(lifecycle),
		sink:      sink,
		cfg:       cfg,
		enabled:   true,
	}
}

// Rules exposes the rule engine for the API layer.
func (e *Engine) Rules() *RuleEngine {
	return e.rules
}

// IngestResult is the outcome of one signal ingestion.
type IngestResult struct {
	Signal      Signal      `json:"signal"`
	IsCrisis    bool        `json:"is_crisis"`
	Crisis      *Crisis     `json:"crisis,omitempty"`
	RuleMatches []RuleMatch `json:"-"`
}

// IngestSignal is the hot path. It never fails: malformed numeric fields
// are clamped rather than rejected, because silently dropping a signal
// would corrupt baseline math more than a clamped outlier does.
func (e *Engine) IngestSignal(ctx context.Context, signal Signal) IngestResult {
	signal = e.normalize(signal)

	key := e.store.Append(signal)
	metrics.SignalsIngested.Inc()

	e.mu.RLock()
	cfg := e.cfg
	baseline := e.baseline
	enabled := e.enabled
	e.mu.RUnlock()

	result := IngestResult{Signal: signal}
	if !enabled {
		return result
	}

	start := time.Now()

	bucket, _ := e.store.Bucket(key)
	detection := Detect(bucket, baseline.Compute(key), cfg)
	triggers := detection.Triggers()

	metrics.RecordDetection(time.Since(start), triggers.VolumeSpike, triggers.NegativeSentiment, triggers.ViralSpread)

	if triggers.Any() {
		c, created, rec, err := e.lifecycle.ProcessDetection(ctx, bucket, detection)
		if err != nil {
			logging.Error().Err(err).Msg("detection processing failed")
		} else if c != nil {
			result.IsCrisis = true
			result.Crisis = c
			if created {
				metrics.CrisesDetected.WithLabelValues(string(c.Severity)).Inc()
				e.publish(ctx, Event{Type: EventCrisisDetected, Crisis: c, At: time.Now()})
				if rec != nil {
					metrics.CrisesEscalated.WithLabelValues(string(rec.Priority)).Inc()
					e.publish(ctx, Event{Type: EventCrisisEscalated, Crisis: c, Escalation: rec, At: time.Now()})
				}
			} else {
				metrics.CrisesDeduplicated.Inc()
			}
		}
	}

	for _, match := range e.rules.Evaluate(ctx, signal, bucket) {
		metrics.RuleMatches.Inc()
		result.RuleMatches = append(result.RuleMatches, match)

		e.publish(ctx, Event{
			Type:        EventRuleTriggered,
			Rule:        match.Rule,
			Crisis:      match.Crisis,
			Escalation:  match.Escalation,
			NotifyUsers: match.Rule.Actions.NotifyUsers,
			At:          time.Now(),
		})
		if match.Escalation != nil {
			metrics.CrisesEscalated.WithLabelValues(string(match.Escalation.Priority)).Inc()
			e.publish(ctx, Event{Type: EventCrisisEscalated, Crisis: match.Crisis, Escalation: match.Escalation, At: time.Now()})
		}
	}

	e.refreshActiveGauge(ctx)
	return result
}

// normalize clamps out-of-range fields and fills defaults. Ingestion must
// always succeed.
func (e *Engine) normalize(signal Signal) Signal {
	clamped := false
	if signal.Reach < 0 {
		signal.Reach = 0
		clamped = true
	}
	if signal.Sentiment < -1 {
		signal.Sentiment = -1
		clamped = true
	}
	if signal.Sentiment > 1 {
		signal.Sentiment = 1
		clamped = true
	}
	if clamped {
		metrics.SignalsClamped.Inc()
	}
	if signal.ID == "" {
		signal.ID = uuid.NewString()
	}
	if signal.CapturedAt.IsZero() {
		signal.CapturedAt = time.Now()
	}
	return signal
}

// Escalate promotes a crisis and publishes the escalation event.
func (e *Engine) Escalate(ctx context.Context, id, reason, by string) (*EscalationRecord, error) {
	rec, err := e.lifecycle.Escalate(ctx, id, reason, by)
	if err != nil {
		return nil, err
	}

	metrics.CrisesEscalated.WithLabelValues(string(rec.Priority)).Inc()
	if c, err := e.lifecycle.Get(ctx, id); err == nil {
		e.publish(ctx, Event{Type: EventCrisisEscalated, Crisis: c, Escalation: rec, At: time.Now()})
	}
	return rec, nil
}

// UpdateStatus transitions a crisis; resolution publishes the resolved event.
func (e *Engine) UpdateStatus(ctx context.Context, id string, status Status, note string) (*Crisis, error) {
	before, err := e.lifecycle.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	c, err := e.lifecycle.UpdateStatus(ctx, id, status, note)
	if err != nil {
		return nil, err
	}

	if status == StatusResolved && before.Status != StatusResolved {
		metrics.CrisesResolved.Inc()
		e.publish(ctx, Event{Type: EventCrisisResolved, Crisis: c, At: time.Now()})
	}
	e.refreshActiveGauge(ctx)
	return c, nil
}

// Assign hands a crisis to a user.
func (e *Engine) Assign(ctx context.Context, id, user string) (*Crisis, error) {
	return e.lifecycle.Assign(ctx, id, user)
}

// Get retrieves a crisis by id.
func (e *Engine) Get(ctx context.Context, id string) (*Crisis, error) {
	return e.lifecycle.Get(ctx, id)
}

// SetEnabled pauses or resumes detection. Ingestion keeps appending either
// way so the baseline stays honest across a pause.
func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = enabled
}

// Enabled reports whether detection runs on ingest.
func (e *Engine) Enabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enabled
}

// Config returns the current detection thresholds.
func (e *Engine) Config() DetectionConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// Configure replaces the detection thresholds. The baseline calculator is
// rebuilt so a changed lookback applies from the next detection pass, like
// every other threshold.
func (e *Engine) Configure(cfg DetectionConfig) error {
	if cfg.VolumeMultiplier <= 0 {
		return fmt.Errorf("%w: volume_multiplier must be positive", ErrValidation)
	}
	if cfg.SentimentSampleFloor < 1 {
		return fmt.Errorf("%w: sentiment_sample_floor must be at least 1", ErrValidation)
	}

	e.mu.Lock()
	if cfg.BaselineHours != e.cfg.BaselineHours {
		e.baseline = NewBaselineCalculator(e.store, cfg.BaselineHours)
	}
	e.cfg = cfg
	e.mu.Unlock()
	return nil
}

// RunWithContext blocks until the context is canceled. It exists so the
// engine can run as a suture-supervised service alongside the dispatcher
// and the websocket hub.
func (e *Engine) RunWithContext(ctx context.Context) error {
	logging.Info().Msg("crisis engine started")
	<-ctx.Done()
	logging.Info().Msg("crisis engine shutting down")
	return ctx.Err()
}

func (e *Engine) publish(ctx context.Context, event Event) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Publish(ctx, event); err != nil {
		logging.Error().Err(err).Str("event", string(event.Type)).Msg("event publish failed")
	} else {
		metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()
	}
}

func (e *Engine) refreshActiveGauge(ctx context.Context) {
	all, err := e.lifecycle.repo.ListCrises(ctx)
	if err != nil {
		return
	}
	active := 0
	for _, c := range all {
		if c.Status == StatusActive {
			active++
		}
	}
	metrics.ActiveCrises.Set(float64(active))
}
