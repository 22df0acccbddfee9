// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

// Package notify delivers crisis events to external channels. Delivery is
// best effort: a failed or slow channel never blocks detection, and each
// notifier guards its endpoint with its own rate limit and circuit breaker.
package notify

import (
	"context"

	"github.com/pulseguard/pulseguard/internal/crisis"
)

// Notifier sends a crisis event to one external channel.
type Notifier interface {
	// Name identifies the notifier in logs and metrics.
	Name() string

	// Enabled reports whether the notifier should receive events.
	Enabled() bool

	// Send delivers the event. Implementations must respect ctx.
	Send(ctx context.Context, event crisis.Event) error
}
