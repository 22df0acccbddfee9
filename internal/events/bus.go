// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

// Package events is the in-process event bus between the detection pipeline
// and its consumers (webhook dispatch, websocket broadcast). It carries
// crisis.Event values over Watermill topics named after the event type, so
// a broker-backed bus can replace the in-memory channel without touching
// either side.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	json "github.com/goccy/go-json"

	"github.com/pulseguard/pulseguard/internal/crisis"
)

// Bus is a Watermill go-channel pub/sub carrying crisis events. It
// implements crisis.EventSink on the publish side; consumers subscribe by
// topic. Publishing never blocks on slow consumers.
type Bus struct {
	pubsub *gochannel.GoChannel

	mu     sync.RWMutex
	closed bool
}

// NewBus creates an in-memory bus. bufferSize bounds the per-subscriber
// channel; 0 falls back to a sensible default.
func NewBus(bufferSize int64, logger watermill.LoggerAdapter) *Bus {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if logger == nil {
		logger = NewLoggerAdapter()
	}

	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            bufferSize,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		}, logger),
	}
}

// Publish implements crisis.EventSink. The event type doubles as the topic.
func (b *Bus) Publish(_ context.Context, event crisis.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("event bus is closed")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_type", string(event.Type))

	if err := b.pubsub.Publish(string(event.Type), msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Subscribe returns a channel of messages for one topic. The channel closes
// when ctx is canceled or the bus shuts down.
func (b *Bus) Subscribe(ctx context.Context, topic crisis.EventType) (<-chan *message.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("event bus is closed")
	}
	return b.pubsub.Subscribe(ctx, string(topic))
}

// Decode unmarshals a bus message back into a crisis event.
func Decode(msg *message.Message) (crisis.Event, error) {
	var event crisis.Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return crisis.Event{}, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}
