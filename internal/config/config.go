// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

// Package config loads application configuration with Koanf v2 from three
// layered sources, later layers overriding earlier ones:
//
//  1. Built-in defaults
//  2. Optional YAML config file (config.yaml, or CONFIG_PATH)
//  3. Environment variables (SERVER_PORT, DETECTION_VOLUME_MULTIPLIER, ...)
//
// Config is immutable after Load and safe for concurrent reads.
package config

import (
	"fmt"
	"time"

	"github.com/pulseguard/pulseguard/internal/crisis"
	"github.com/pulseguard/pulseguard/internal/notify"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig           `koanf:"server"`
	Detection crisis.DetectionConfig `koanf:"detection"`
	Events    EventsConfig           `koanf:"events"`
	Webhook   notify.WebhookConfig   `koanf:"webhook"`
	Logging   LoggingConfig          `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// IngestRateLimit caps POST /api/v1/signals requests per client IP per
	// window; 0 disables the limiter.
	IngestRateLimit  int           `koanf:"ingest_rate_limit"`
	IngestRateWindow time.Duration `koanf:"ingest_rate_window"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	// BufferSize bounds each subscriber's channel.
	BufferSize int64 `koanf:"buffer_size"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks cross-field constraints the type system cannot express.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Detection.VolumeMultiplier <= 0 {
		return fmt.Errorf("detection.volume_multiplier must be positive")
	}
	if c.Detection.SentimentSampleFloor < 1 {
		return fmt.Errorf("detection.sentiment_sample_floor must be at least 1")
	}
	if c.Detection.NegativeFraction <= 0 || c.Detection.NegativeFraction > 1 {
		return fmt.Errorf("detection.negative_fraction must be in (0, 1]")
	}
	if c.Detection.BaselineHours < 1 {
		return fmt.Errorf("detection.baseline_hours must be at least 1")
	}
	if c.Webhook.Enabled && c.Webhook.URL == "" {
		return fmt.Errorf("webhook.url required when webhook.enabled")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q must be json or console", c.Logging.Format)
	}
	return nil
}
