// Package metrics declares the Prometheus metrics for the rendezvous
// server. Kept close to the domain (connections, rooms, calls); no generic
// per-HTTP-request metrics are collected.
//
// Naming convention: namespace_subsystem_name.
//   - namespace: rendezvous (application-level grouping)
//   - subsystem: connection, room, call, ring (feature-level grouping)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks the current number of live WebSocket connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rendezvous",
		Subsystem: "connection",
		Name:      "active",
		Help:      "Current number of active WebSocket connections",
	})

	// ActiveRooms tracks the current number of rooms in the registry.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rendezvous",
		Subsystem: "room",
		Name:      "active",
		Help:      "Current number of active rooms",
	})

	// RoomMembers tracks member count per room.
	RoomMembers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "rendezvous",
		Subsystem: "room",
		Name:      "members",
		Help:      "Number of members in each room",
	}, []string{"room"})

	// ActiveCalls tracks the current number of non-ENDED calls.
	ActiveCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rendezvous",
		Subsystem: "call",
		Name:      "active",
		Help:      "Current number of non-ENDED calls",
	})

	// CallsEndedTotal tracks terminal calls by reason.
	CallsEndedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rendezvous",
		Subsystem: "call",
		Name:      "ended_total",
		Help:      "Total calls that reached ENDED, by reason",
	}, []string{"reason"})

	// RingResendsTotal tracks ring-resend fires.
	RingResendsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rendezvous",
		Subsystem: "ring",
		Name:      "resends_total",
		Help:      "Total ring resend fires across all calls",
	})

	// FramesTotal tracks inbound frames processed by the router, by type and
	// outcome. The rate limiter also records /ws connect checks here under
	// type "ws-connect".
	FramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rendezvous",
		Subsystem: "frame",
		Name:      "processed_total",
		Help:      "Total inbound frames processed, by type and outcome",
	}, []string{"type", "outcome"})

	// HeartbeatReapedTotal tracks connections reaped by the supervisor.
	HeartbeatReapedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rendezvous",
		Subsystem: "heartbeat",
		Name:      "reaped_total",
		Help:      "Total connections reaped for missed liveness sweeps",
	})
)
