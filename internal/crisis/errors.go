// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package crisis

import "errors"

// Sentinel errors for the crisis core. Callers match with errors.Is; the
// HTTP layer maps them to status codes (404, 409, 400).
var (
	// ErrNotFound indicates an unknown crisis or rule id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState indicates an illegal lifecycle transition,
	// e.g. escalating a resolved crisis.
	ErrInvalidState = errors.New("invalid state")

	// ErrValidation indicates malformed caller input,
	// e.g. a rule with no thresholds configured.
	ErrValidation = errors.New("validation failed")
)
