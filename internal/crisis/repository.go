// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package crisis

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRepository is the in-memory Repository implementation. Crises are
// stored by value-copy on both write and read so no caller ever holds a
// reference into repository state.
type MemoryRepository struct {
	mu          sync.RWMutex
	crises      map[string]*Crisis
	order       []string // insertion order, for stable listings
	escalations map[string][]*EscalationRecord
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		crises:      make(map[string]*Crisis),
		escalations: make(map[string][]*EscalationRecord),
	}
}

// SaveCrisis inserts or replaces a crisis.
func (r *MemoryRepository) SaveCrisis(_ context.Context, c *Crisis) error {
	if c.ID == "" {
		return fmt.Errorf("%w: crisis id required", ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.crises[c.ID]; !ok {
		r.order = append(r.order, c.ID)
	}
	r.crises[c.ID] = c.Clone()
	return nil
}

// GetCrisis retrieves a crisis by id.
func (r *MemoryRepository) GetCrisis(_ context.Context, id string) (*Crisis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.crises[id]
	if !ok {
		return nil, fmt.Errorf("%w: crisis %s", ErrNotFound, id)
	}
	return c.Clone(), nil
}

// ListCrises returns all crises in insertion order.
func (r *MemoryRepository) ListCrises(_ context.Context) ([]*Crisis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Crisis, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.crises[id].Clone())
	}
	return out, nil
}

// SaveEscalation appends an escalation record.
func (r *MemoryRepository) SaveEscalation(_ context.Context, rec *EscalationRecord) error {
	if rec.CrisisID == "" {
		return fmt.Errorf("%w: escalation crisis id required", ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *rec
	r.escalations[rec.CrisisID] = append(r.escalations[rec.CrisisID], &cp)
	return nil
}

// ListEscalations returns the escalation records for a crisis, oldest first.
func (r *MemoryRepository) ListEscalations(_ context.Context, crisisID string) ([]*EscalationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := r.escalations[crisisID]
	out := make([]*EscalationRecord, 0, len(recs))
	for _, rec := range recs {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}
