// Package vesselsync propagates authoritative state changes (work orders,
// alerts, equipment, crew, maintenance records) from a central store to
// distributed, frequently-disconnected vessel clients over MQTT, with
// delivery guarantees stronger than best-effort.
//
// Works both as a library for embedding in your application AND as a
// standalone agent with a REST status API.
//
// # Features
//
//   - Durable (non-clean) broker session with retained last-will presence
//   - Per-entity QoS/retain policy: QoS 1 retained for records, QoS 2 for safety alerts
//   - Bounded offline queue with drop-oldest eviction; FIFO flush on reconnect
//   - Unlimited reconnection with damped attempt logging (vessels can be offline for days)
//   - Local +/# wildcard matching so dispatch never depends on broker forwarding semantics
//   - Catchup replay of missed rows with sequence/total metadata on dedicated topics
//   - Append-only audit journal plus outbox with dead-letter triage
//   - Process-local event bus with explicit, leak-free listener teardown
//   - Options Pattern for service construction; pluggable Logger and NotificationService
//   - Multi-Database Support: MySQL, PostgreSQL, SQLite via Relica adapters
//   - Embedded migrations for easy database setup
//
// # Quick Start
//
// Wire the session, queue, and publisher:
//
//	metrics := vesselsync.NewMetrics()
//	queue := vesselsync.NewOfflineQueue(10000)
//
//	conn, _ := vesselsync.NewConnectionManager(
//	    vesselsync.WithBrokerURL("tcp://broker:1883"),
//	    vesselsync.WithConnectionLogger(logger),
//	    vesselsync.WithConnectionMetrics(metrics),
//	)
//
//	publisher, _ := vesselsync.NewPublisher(
//	    vesselsync.WithPublisherSession(conn),
//	    vesselsync.WithPublisherQueue(queue),
//	    vesselsync.WithPublisherLogger(logger),
//	    vesselsync.WithPublisherMetrics(metrics),
//	)
//
//	registry, _ := vesselsync.NewSubscriptionRegistry(
//	    vesselsync.WithRegistrySession(conn),
//	    vesselsync.WithRegistryLogger(logger),
//	)
//
//	conn.OnConnect(func() { registry.ResubscribeAll() })
//	conn.OnConnect(func() { publisher.Flush() })
//	conn.Start() // succeeds even with no broker reachable (offline mode)
//
// Publish a change (queued automatically while offline):
//
//	err := publisher.PublishWorkOrderChange(model.OpCreate, map[string]interface{}{
//	    "id": "wo-1042", "status": "open",
//	})
//
// # Message Flow
//
//  1. RECORD
//     Domain service persists an entity
//     → EventLog.RecordAndPublish writes journal + outbox (best-effort)
//     → emits on the process-local bus
//
//  2. PUBLISH
//     Publisher builds a SyncEnvelope → resolves topic + QoS/retain policy
//     → connected: straight to the broker
//     → offline or rejected: parked in the bounded offline queue
//
//  3. RECONNECT
//     ConnectionManager → retained online status
//     → SubscriptionRegistry.ResubscribeAll → Publisher.Flush (FIFO)
//
//  4. CATCHUP
//     Reconnecting consumer asks for rows changed since its last-known
//     timestamp → CatchupReplayer publishes them in order on
//     <topic>/catchup with sequence/total, QoS 1, never retained
//
// # Delivery Semantics
//
// The broker hop is at-least-once (QoS 1) for records and exactly-once
// (QoS 2) for safety alerts. Message IDs are regenerated on every publish
// attempt, so consumers deduplicate on entity identity, not message ID.
// No ordering is guaranteed across the connected path and the
// queued-then-flushed path around a reconnect boundary.
//
// # Database Schema
//
// The event log requires 2 tables (created via embedded migrations):
//
//	vesselsync_journal  - Append-only audit trail, one row per mutation
//	vesselsync_outbox   - Outbox events with processing state for the sweep
//
// Supports MySQL, PostgreSQL, and SQLite via Relica adapters.
//
// For detailed documentation, see README.md and pkg.go.dev.
package vesselsync
