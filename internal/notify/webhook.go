// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/pulseguard/pulseguard/internal/crisis"
)

// WebhookConfig configures the generic webhook notifier.
type WebhookConfig struct {
	URL     string            `json:"url" koanf:"url"`
	Headers map[string]string `json:"headers,omitempty" koanf:"headers"` // custom headers (e.g. auth)
	Enabled bool              `json:"enabled" koanf:"enabled"`

	// RequestsPerSecond caps outbound delivery; bursts of BurstSize pass
	// through unthrottled.
	RequestsPerSecond float64 `json:"requests_per_second" koanf:"requests_per_second"`
	BurstSize         int     `json:"burst_size" koanf:"burst_size"`

	TimeoutSeconds int `json:"timeout_seconds" koanf:"timeout_seconds"`
}

// WebhookPayload is the JSON body sent to the endpoint.
type WebhookPayload struct {
	Event     crisis.Event `json:"event"`
	EventType string       `json:"event_type"`
	Timestamp time.Time    `json:"timestamp"`
	Source    string       `json:"source"` // pulseguard
}

// WebhookNotifier posts crisis events to a configured HTTP endpoint. The
// circuit breaker opens after consecutive failures so a dead endpoint stops
// consuming dispatcher time; the limiter smooths bursts during a crisis
// storm, which is exactly when the bus is busiest.
type WebhookNotifier struct {
	mu      sync.RWMutex
	url     string
	headers map[string]string
	enabled bool

	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewWebhookNotifier creates a webhook notifier from config.
func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 5
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 10
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "webhook",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &WebhookNotifier{
		url:     cfg.URL,
		headers: headers,
		enabled: cfg.Enabled,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		breaker: breaker,
	}
}

// Name returns the notifier name.
func (n *WebhookNotifier) Name() string {
	return "webhook"
}

// Enabled reports whether the notifier is configured and switched on.
func (n *WebhookNotifier) Enabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled && n.url != ""
}

// SetEnabled enables or disables the notifier.
func (n *WebhookNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetURL updates the endpoint.
func (n *WebhookNotifier) SetURL(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.url = url
}

// Send delivers one event to the endpoint.
func (n *WebhookNotifier) Send(ctx context.Context, event crisis.Event) error {
	n.mu.RLock()
	url := n.url
	enabled := n.enabled
	headers := make(map[string]string, len(n.headers))
	for k, v := range n.headers {
		headers[k] = v
	}
	n.mu.RUnlock()

	if !enabled || url == "" {
		return nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	payload := WebhookPayload{
		Event:     event,
		EventType: string(event.Type),
		Timestamp: time.Now(),
		Source:    "pulseguard",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	_, err = n.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, n.post(ctx, url, headers, body)
	})
	return err
}

func (n *WebhookNotifier) post(ctx context.Context, url string, headers map[string]string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
