// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package api

import (
	"errors"
	"net/http"

	"github.com/pulseguard/pulseguard/internal/crisis"
	"github.com/pulseguard/pulseguard/internal/logging"
)

// respondDomainError maps crisis package errors onto HTTP status codes.
// Unknown errors are logged and reported as 500 without leaking detail.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	switch {
	case errors.Is(err, crisis.ErrNotFound):
		rw.NotFound(err.Error())
	case errors.Is(err, crisis.ErrInvalidState):
		rw.Conflict(err.Error())
	case errors.Is(err, crisis.ErrValidation):
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, err.Error())
	default:
		logging.Error().
			Err(err).
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Msg("Unhandled error in API handler")
		rw.InternalError("An internal error occurred")
	}
}
