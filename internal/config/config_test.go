// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8478 {
		t.Errorf("Server.Port = %d, want 8478", cfg.Server.Port)
	}
	if cfg.Detection.VolumeMultiplier != 3 {
		t.Errorf("Detection.VolumeMultiplier = %v, want 3", cfg.Detection.VolumeMultiplier)
	}
	if cfg.Detection.BaselineHours != 24 {
		t.Errorf("Detection.BaselineHours = %d, want 24", cfg.Detection.BaselineHours)
	}
	if cfg.Webhook.Enabled {
		t.Error("Webhook.Enabled = true by default")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DETECTION_VOLUME_MULTIPLIER", "5")
	t.Setenv("LOGGING_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Detection.VolumeMultiplier != 5 {
		t.Errorf("Detection.VolumeMultiplier = %v, want 5", cfg.Detection.VolumeMultiplier)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9999
detection:
  baseline_hours: 12
webhook:
  enabled: true
  url: https://example.com/hook
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Detection.BaselineHours != 12 {
		t.Errorf("Detection.BaselineHours = %d, want 12", cfg.Detection.BaselineHours)
	}
	if !cfg.Webhook.Enabled || cfg.Webhook.URL != "https://example.com/hook" {
		t.Errorf("Webhook = %+v, want enabled with url", cfg.Webhook)
	}

	// Env still beats the file.
	t.Setenv("SERVER_PORT", "9001")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load with env: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("Server.Port = %d, want env override 9001", cfg.Server.Port)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "port out of range",
			mutate:  func(cfg *Config) { cfg.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "non-positive multiplier",
			mutate:  func(cfg *Config) { cfg.Detection.VolumeMultiplier = -1 },
			wantErr: true,
		},
		{
			name:    "zero sample floor",
			mutate:  func(cfg *Config) { cfg.Detection.SentimentSampleFloor = 0 },
			wantErr: true,
		},
		{
			name:    "negative fraction above one",
			mutate:  func(cfg *Config) { cfg.Detection.NegativeFraction = 1.2 },
			wantErr: true,
		},
		{
			name:    "webhook enabled without url",
			mutate:  func(cfg *Config) { cfg.Webhook.Enabled = true },
			wantErr: true,
		},
		{
			name:    "unknown log format",
			mutate:  func(cfg *Config) { cfg.Logging.Format = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SERVER_PORT", "server.port"},
		{"SERVER_INGEST_RATE_LIMIT", "server.ingest_rate_limit"},
		{"DETECTION_VOLUME_MULTIPLIER", "detection.volume_multiplier"},
		{"WEBHOOK_REQUESTS_PER_SECOND", "webhook.requests_per_second"},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestServerConfig_Addr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8478}
	if got := s.Addr(); got != "127.0.0.1:8478" {
		t.Errorf("Addr() = %q", got)
	}
}

func TestDefaultDurations(t *testing.T) {
	cfg := Default()
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Detection.RecentWindow != 30*time.Minute {
		t.Errorf("RecentWindow = %v, want 30m", cfg.Detection.RecentWindow)
	}
}
