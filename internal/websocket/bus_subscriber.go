// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package websocket

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/pulseguard/pulseguard/internal/crisis"
	"github.com/pulseguard/pulseguard/internal/events"
	"github.com/pulseguard/pulseguard/internal/logging"
)

// messageTypeFor maps bus topics onto dashboard message types.
var messageTypeFor = map[crisis.EventType]string{
	crisis.EventCrisisDetected:  MessageTypeCrisisDetected,
	crisis.EventCrisisEscalated: MessageTypeCrisisEscalated,
	crisis.EventCrisisResolved:  MessageTypeCrisisResolved,
	crisis.EventRuleTriggered:   MessageTypeRuleTriggered,
}

// BusSubscriber relays crisis events from the bus into hub broadcasts.
// It runs as a supervised service next to the hub.
type BusSubscriber struct {
	bus *events.Bus
	hub *Hub
}

// NewBusSubscriber creates a subscriber feeding the given hub.
func NewBusSubscriber(bus *events.Bus, hub *Hub) *BusSubscriber {
	return &BusSubscriber{bus: bus, hub: hub}
}

// Serve implements suture.Service.
func (s *BusSubscriber) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	for topic, msgType := range messageTypeFor {
		msgs, err := s.bus.Subscribe(ctx, topic)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func(msgType string) {
			defer wg.Done()
			s.relay(msgs, msgType)
		}(msgType)
	}

	logging.Info().Msg("websocket bus subscriber started")
	wg.Wait()
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (s *BusSubscriber) String() string {
	return "websocket-bus-subscriber"
}

func (s *BusSubscriber) relay(msgs <-chan *message.Message, msgType string) {
	for msg := range msgs {
		event, err := events.Decode(msg)
		if err != nil {
			logging.Warn().Err(err).Str("msg_uuid", msg.UUID).Msg("undecodable event dropped")
			msg.Ack()
			continue
		}
		msg.Ack()
		s.hub.BroadcastJSON(msgType, event)
	}
}
