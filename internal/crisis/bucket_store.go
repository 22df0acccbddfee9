// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package crisis

import (
	"sync"
	"time"
)

// MemoryBucketStore is the in-memory BucketStore implementation.
//
// Appends to the same bucket serialize on a per-bucket mutex; appends to
// different buckets do not contend. Reads copy the signal slice under the
// bucket lock so detection passes see a consistent count even while
// producers keep appending.
type MemoryBucketStore struct {
	mu      sync.RWMutex // guards the buckets map itself
	buckets map[time.Time]*memBucket

	// now is injectable for tests.
	now func() time.Time
}

type memBucket struct {
	mu        sync.Mutex
	startedAt time.Time
	signals   []Signal
}

// NewMemoryBucketStore creates an empty store.
func NewMemoryBucketStore() *MemoryBucketStore {
	return &MemoryBucketStore{
		buckets: make(map[time.Time]*memBucket),
		now:     time.Now,
	}
}

// BucketKey returns the 1-hour bucket key for a timestamp.
func BucketKey(t time.Time) time.Time {
	return t.UTC().Truncate(BucketDuration)
}

// Append inserts a signal into the bucket for its capture hour, creating the
// bucket if absent. A zero CapturedAt defaults to the ingestion time.
func (s *MemoryBucketStore) Append(signal Signal) time.Time {
	if signal.CapturedAt.IsZero() {
		signal.CapturedAt = s.now()
	}
	key := BucketKey(signal.CapturedAt)

	s.mu.RLock()
	b, ok := s.buckets[key]
	s.mu.RUnlock()

	if !ok {
		s.mu.Lock()
		b, ok = s.buckets[key]
		if !ok {
			b = &memBucket{startedAt: s.now()}
			s.buckets[key] = b
		}
		s.mu.Unlock()
	}

	b.mu.Lock()
	b.signals = append(b.signals, signal)
	b.mu.Unlock()

	return key
}

// Bucket returns a snapshot of the bucket for key.
func (s *MemoryBucketStore) Bucket(key time.Time) (TimeBucket, bool) {
	s.mu.RLock()
	b, ok := s.buckets[key]
	s.mu.RUnlock()
	if !ok {
		return TimeBucket{}, false
	}

	b.mu.Lock()
	signals := append([]Signal(nil), b.signals...)
	startedAt := b.startedAt
	b.mu.Unlock()

	return TimeBucket{Key: key, StartedAt: startedAt, Signals: signals}, true
}

// PrecedingBuckets returns snapshots of up to n hourly buckets strictly
// before key, oldest first. Hours with no signals are skipped rather than
// zero-filled; the baseline calculator decides how to treat them.
func (s *MemoryBucketStore) PrecedingBuckets(key time.Time, n int) []TimeBucket {
	if n <= 0 {
		return nil
	}

	out := make([]TimeBucket, 0, n)
	for i := n; i >= 1; i-- {
		k := key.Add(-time.Duration(i) * BucketDuration)
		if b, ok := s.Bucket(k); ok {
			out = append(out, b)
		}
	}
	return out
}

// Len returns the number of buckets currently held.
func (s *MemoryBucketStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets)
}
