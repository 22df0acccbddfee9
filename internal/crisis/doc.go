// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

// Package crisis implements the brand-mention crisis pipeline: hourly
// signal bucketing, baseline computation, anomaly detection, severity
// scoring, crisis lifecycle management, and user-authored rules.
//
// Pipeline Architecture:
//
//	Signal -> Bucket Store -> Detectors -> Scorer -> Lifecycle -> Events
//	                             |                       |
//	                             v                       v
//	                        Rule Engine          WebSocket/Webhook
//
// Signals are grouped into fixed hourly buckets keyed by UTC truncation.
// Each ingestion runs three independent detectors against the signal's
// bucket and the trailing baseline window:
//   - Volume Spike: bucket volume exceeds a multiple of the hourly baseline
//   - Negative Sentiment: the share of negative signals crosses a floor
//   - Viral Spread: combined reach and short-window growth both cross limits
//
// Any firing detector yields a scored severity. An active crisis in the
// same bucket with an overlapping trigger set absorbs the detection
// instead of creating a duplicate. Critical crises escalate immediately.
//
// All state lives in memory behind the BucketStore and Repository
// interfaces. Mutations flow through Lifecycle, which serializes writes
// per crisis and per bucket so concurrent ingestion stays consistent.
package crisis
