// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

// Package websocket pushes crisis activity to connected dashboards. The hub
// owns the client set and fans out broadcasts; a bus subscriber feeds it
// from the event bus so the pipeline never talks to sockets directly.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/pulseguard/pulseguard/internal/logging"
	"github.com/pulseguard/pulseguard/internal/metrics"
)

// Message types pushed to dashboard clients.
const (
	MessageTypeCrisisDetected  = "crisis_detected"
	MessageTypeCrisisEscalated = "crisis_escalated"
	MessageTypeCrisisResolved  = "crisis_resolved"
	MessageTypeRuleTriggered   = "rule_triggered"
	MessageTypeStatsUpdate     = "stats_update"
	MessageTypePing            = "ping"
	MessageTypePong            = "pong"
)

// Message is the envelope sent to every client.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
	done       chan struct{}
}

// NewHub creates an empty hub. Run it under a supervisor via RunWithContext.
func NewHub() *Hub {
	// done starts closed so Detach never blocks before the hub runs.
	done := make(chan struct{})
	close(done)

	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       done,
	}
}

// RunWithContext processes registrations and broadcasts until ctx is
// canceled, then closes every client and returns ctx.Err(). Lifecycle
// events are drained before broadcasts so the client set is consistent
// when a message fans out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	h.mu.Lock()
	h.done = make(chan struct{})
	done := h.done
	h.mu.Unlock()
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client disconnected")
}

// broadcastToClients fans a message out in client id order. Clients whose
// send buffer is full are dropped; a stalled dashboard must not hold the
// hub loop hostage.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	count := len(h.clients)
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	metrics.WSConnections.Set(0)
	logging.Info().
		Str("component", "websocket-hub").
		Int("clients_closed", count).
		Msg("websocket hub stopped")
}

// Detach hands a client to the unregister loop, or returns immediately
// when the hub has stopped. Read pumps must use this instead of sending
// on Unregister directly: after shutdown nothing drains that channel and
// a plain send would block the goroutine forever.
func (h *Hub) Detach(client *Client) {
	h.mu.RLock()
	done := h.done
	h.mu.RUnlock()

	select {
	case h.Unregister <- client:
	case <-done:
	}
}

// BroadcastJSON queues a typed message for every connected client. Drops
// the message when the broadcast buffer is full rather than blocking the
// caller.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	message := Message{Type: messageType, Data: data}
	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
