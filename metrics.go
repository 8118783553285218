package vesselsync

import "sync/atomic"

// Metrics holds the raw delivery counters exposed to operators.
// All methods are safe for concurrent use.
type Metrics struct {
	published       atomic.Int64
	queued          atomic.Int64
	dropped         atomic.Int64
	publishFailures atomic.Int64
	reconnects      atomic.Int64
	flushes         atomic.Int64
}

// NewMetrics creates a zeroed counter set.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncPublished counts a message accepted by the broker.
func (m *Metrics) IncPublished() { m.published.Add(1) }

// IncQueued counts a message first parked in the offline queue.
// Flush-time requeues of the same message are not recounted.
func (m *Metrics) IncQueued() { m.queued.Add(1) }

// IncDropped counts a message evicted by capacity pressure.
func (m *Metrics) IncDropped() { m.dropped.Add(1) }

// IncPublishFailures counts a failed publish attempt.
func (m *Metrics) IncPublishFailures() { m.publishFailures.Add(1) }

// IncReconnects counts a completed reconnection.
func (m *Metrics) IncReconnects() { m.reconnects.Add(1) }

// IncFlushes counts a completed flush pass.
func (m *Metrics) IncFlushes() { m.flushes.Add(1) }

// Counters is a point-in-time snapshot of the raw counters.
type Counters struct {
	Published       int64 `json:"published"`
	Queued          int64 `json:"queued"`
	Dropped         int64 `json:"dropped"`
	PublishFailures int64 `json:"publishFailures"`
	Reconnects      int64 `json:"reconnects"`
	Flushes         int64 `json:"flushes"`
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Counters {
	return Counters{
		Published:       m.published.Load(),
		Queued:          m.queued.Load(),
		Dropped:         m.dropped.Load(),
		PublishFailures: m.publishFailures.Load(),
		Reconnects:      m.reconnects.Load(),
		Flushes:         m.flushes.Load(),
	}
}

// Status is the health/status contract exposed to operators.
type Status struct {
	Connected           bool     `json:"connected"`
	State               string   `json:"state"`
	BrokerURL           string   `json:"brokerURL"`
	DefaultQoS          byte     `json:"defaultQoS"`
	TLS                 bool     `json:"tls"`
	QueueSize           int      `json:"queueSize"`
	QueueMax            int      `json:"queueMax"`
	QueueUtilization    float64  `json:"queueUtilization"`
	ActiveSubscriptions int      `json:"activeSubscriptions"`
	ReconnectAttempts   int64    `json:"reconnectAttempts"`
	Counters            Counters `json:"counters"`
}

// HealthReporter assembles the operator-facing status report from the live
// components.
type HealthReporter struct {
	conn     *ConnectionManager
	queue    *OfflineQueue
	registry *SubscriptionRegistry
	metrics  *Metrics
}

// NewHealthReporter creates a reporter over the given components.
// Any component may be nil; its fields are simply left zeroed.
func NewHealthReporter(conn *ConnectionManager, queue *OfflineQueue, registry *SubscriptionRegistry, metrics *Metrics) *HealthReporter {
	return &HealthReporter{
		conn:     conn,
		queue:    queue,
		registry: registry,
		metrics:  metrics,
	}
}

// Status returns the current health/status report.
func (r *HealthReporter) Status() Status {
	var s Status
	if r.conn != nil {
		s.Connected = r.conn.IsConnected()
		s.State = r.conn.State()
		s.BrokerURL = r.conn.BrokerURL()
		s.DefaultQoS = DefaultQoS()
		s.TLS = r.conn.TLSEnabled()
		s.ReconnectAttempts = r.conn.ReconnectAttempts()
	}
	if r.queue != nil {
		s.QueueSize = r.queue.Len()
		s.QueueMax = r.queue.Capacity()
		s.QueueUtilization = r.queue.Utilization()
	}
	if r.registry != nil {
		s.ActiveSubscriptions = r.registry.Count()
	}
	if r.metrics != nil {
		s.Counters = r.metrics.Snapshot()
	}
	return s
}
