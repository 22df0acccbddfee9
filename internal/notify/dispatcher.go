// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

package notify

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/pulseguard/pulseguard/internal/crisis"
	"github.com/pulseguard/pulseguard/internal/events"
	"github.com/pulseguard/pulseguard/internal/logging"
	"github.com/pulseguard/pulseguard/internal/metrics"
)

// dispatchTopics are the bus topics the dispatcher consumes.
var dispatchTopics = []crisis.EventType{
	crisis.EventCrisisDetected,
	crisis.EventCrisisEscalated,
	crisis.EventCrisisResolved,
	crisis.EventRuleTriggered,
}

// Dispatcher consumes crisis events off the bus and fans each one out to
// every enabled notifier. One notifier failing or lagging does not affect
// the others; messages are acked once handed to the notifiers so the bus
// never backs up into the detection path.
type Dispatcher struct {
	bus       *events.Bus
	notifiers []Notifier
}

// NewDispatcher creates a dispatcher over the bus with a fixed notifier set.
func NewDispatcher(bus *events.Bus, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{bus: bus, notifiers: notifiers}
}

// Serve implements suture.Service. It subscribes to every crisis topic and
// blocks until the context is canceled.
func (d *Dispatcher) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, topic := range dispatchTopics {
		msgs, err := d.bus.Subscribe(ctx, topic)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.consume(ctx, msgs)
		}()
	}

	logging.Info().Int("notifiers", len(d.notifiers)).Msg("notification dispatcher started")
	wg.Wait()
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (d *Dispatcher) String() string {
	return "notify-dispatcher"
}

func (d *Dispatcher) consume(ctx context.Context, msgs <-chan *message.Message) {
	for msg := range msgs {
		event, err := events.Decode(msg)
		if err != nil {
			logging.Error().Err(err).Str("msg_uuid", msg.UUID).Msg("undecodable event dropped")
			msg.Ack()
			continue
		}
		msg.Ack()
		d.fanOut(ctx, event)
	}
}

func (d *Dispatcher) fanOut(ctx context.Context, event crisis.Event) {
	for _, n := range d.notifiers {
		if !n.Enabled() {
			continue
		}
		err := n.Send(ctx, event)
		metrics.RecordNotification(n.Name(), err)
		if err != nil {
			logging.Warn().
				Err(err).
				Str("notifier", n.Name()).
				Str("event", string(event.Type)).
				Msg("notification delivery failed")
		}
	}
}
