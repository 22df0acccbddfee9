// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package services

import (
	"context"
)

// ContextRunner matches components that run until their context is
// canceled, such as the WebSocket hub and the detection engine.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerService wraps a ContextRunner as a supervised service. The
// component already implements the suture.Service pattern, so the wrapper
// only delegates and provides a stable name for logging.
type RunnerService struct {
	runner ContextRunner
	name   string
}

// NewRunnerService creates a supervised wrapper around runner.
func NewRunnerService(name string, runner ContextRunner) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	return s.runner.RunWithContext(ctx)
}

// String implements fmt.Stringer for supervisor logging.
func (s *RunnerService) String() string {
	return s.name
}
