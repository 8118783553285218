package vesselsync

import (
	"context"
	"fmt"

	"github.com/coregx/vesselsync/model"
)

// Publisher turns entity changes into wire envelopes and delivers them.
//
// If the session is connected the envelope goes straight to the broker with
// the entity class's fixed QoS/retain policy; on a broker-level failure the
// message is parked in the offline queue and the error is surfaced to the
// caller (callers on fire-and-forget paths catch and log it, never propagate
// it into the triggering business transaction). While disconnected every
// publish is parked immediately without a broker round-trip.
//
// Thread safety: safe for concurrent use; queue mutations are guarded by the
// queue's own lock.
type Publisher struct {
	session  BrokerSession
	queue    *OfflineQueue
	logger   Logger
	metrics  *Metrics
	notifier NotificationService
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher) error

// NewPublisher creates a new Publisher with the provided options.
//
// Required options:
//   - WithPublisherSession: the broker session
//   - WithPublisherQueue: the offline queue
//   - WithPublisherLogger: logger instance
//
// Example:
//
//	publisher, err := vesselsync.NewPublisher(
//	    vesselsync.WithPublisherSession(conn),
//	    vesselsync.WithPublisherQueue(queue),
//	    vesselsync.WithPublisherLogger(logger),
//	)
func NewPublisher(opts ...PublisherOption) (*Publisher, error) {
	p := &Publisher{
		notifier: &NoOpNotificationService{},
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply publisher option", err)
		}
	}

	// Validate required dependencies
	if p.session == nil {
		return nil, NewError(ErrCodeConfiguration, "BrokerSession is required (use WithPublisherSession)")
	}
	if p.queue == nil {
		return nil, NewError(ErrCodeConfiguration, "OfflineQueue is required (use WithPublisherQueue)")
	}
	if p.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithPublisherLogger)")
	}
	if p.metrics == nil {
		p.metrics = NewMetrics()
	}

	return p, nil
}

// WithPublisherSession sets the broker session. Required.
func WithPublisherSession(session BrokerSession) PublisherOption {
	return func(p *Publisher) error {
		if session == nil {
			return fmt.Errorf("session cannot be nil")
		}
		p.session = session
		return nil
	}
}

// WithPublisherQueue sets the offline queue. Required.
func WithPublisherQueue(queue *OfflineQueue) PublisherOption {
	return func(p *Publisher) error {
		if queue == nil {
			return fmt.Errorf("queue cannot be nil")
		}
		p.queue = queue
		return nil
	}
}

// WithPublisherLogger sets the logger instance. Required.
func WithPublisherLogger(logger Logger) PublisherOption {
	return func(p *Publisher) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		p.logger = logger
		return nil
	}
}

// WithPublisherMetrics sets the shared counter set.
func WithPublisherMetrics(metrics *Metrics) PublisherOption {
	return func(p *Publisher) error {
		if metrics == nil {
			return fmt.Errorf("metrics cannot be nil")
		}
		p.metrics = metrics
		return nil
	}
}

// WithPublisherNotifications sets an optional notification service alerted
// when the queue evicts a message under capacity pressure.
func WithPublisherNotifications(service NotificationService) PublisherOption {
	return func(p *Publisher) error {
		if service == nil {
			return fmt.Errorf("notification service cannot be nil")
		}
		p.notifier = service
		return nil
	}
}

// PublishChange publishes a data-change envelope for an entity class using
// the class's fixed QoS/retain policy.
//
// Returns a serialization error if the payload cannot be encoded (never
// queued, retrying cannot succeed) or a publish error if the broker rejected
// the message (already parked in the queue for the next flush).
func (p *Publisher) PublishChange(entityClass string, operation model.Operation, data map[string]interface{}) error {
	envelope := model.NewDataChangeEnvelope(entityClass, operation, data)
	policy := PolicyFor(entityClass)
	return p.publishEnvelope(TopicFor(entityClass), envelope, policy.QoS, policy.Retain)
}

// PublishWorkOrderChange publishes a work order change (QoS 1, retained).
func (p *Publisher) PublishWorkOrderChange(operation model.Operation, data map[string]interface{}) error {
	return p.PublishChange(EntityWorkOrders, operation, data)
}

// PublishAlertChange publishes a safety alert change (QoS 2, retained).
func (p *Publisher) PublishAlertChange(operation model.Operation, data map[string]interface{}) error {
	return p.PublishChange(EntityAlerts, operation, data)
}

// PublishEquipmentChange publishes an equipment change (QoS 1, retained).
func (p *Publisher) PublishEquipmentChange(operation model.Operation, data map[string]interface{}) error {
	return p.PublishChange(EntityEquipment, operation, data)
}

// PublishCrewChange publishes a crew change (QoS 1, retained).
func (p *Publisher) PublishCrewChange(operation model.Operation, data map[string]interface{}) error {
	return p.PublishChange(EntityCrew, operation, data)
}

// PublishMaintenanceChange publishes a maintenance schedule change (QoS 1, retained).
func (p *Publisher) PublishMaintenanceChange(operation model.Operation, data map[string]interface{}) error {
	return p.PublishChange(EntityMaintenanceSchedules, operation, data)
}

func (p *Publisher) publishEnvelope(topic string, envelope model.SyncEnvelope, qos byte, retain bool) error {
	payload, err := envelope.Encode()
	if err != nil {
		p.metrics.IncPublishFailures()
		return NewErrorWithCause(ErrCodeSerialization, "failed to encode envelope", err)
	}

	if !p.session.IsConnected() {
		p.enqueue(model.NewQueuedMessage(topic, envelope, qos, retain))
		p.logger.Debugf("Offline, queued message for %s (queue=%d)", topic, p.queue.Len())
		return nil
	}

	if err := p.session.Publish(topic, qos, retain, payload); err != nil {
		p.metrics.IncPublishFailures()
		p.enqueue(model.NewQueuedMessage(topic, envelope, qos, retain))
		return NewErrorWithCause(ErrCodePublish, fmt.Sprintf("broker rejected publish to %s, message queued", topic), err)
	}

	p.metrics.IncPublished()
	return nil
}

// enqueue parks a message in the offline queue for the first time.
// The queued counter tracks messages parked, so flush-time requeues go
// through requeue instead and are not recounted.
func (p *Publisher) enqueue(m model.QueuedMessage) {
	p.park(m)
	p.metrics.IncQueued()
}

// requeue pushes a message back onto the tail after a failed flush
// republish without touching the queued counter.
func (p *Publisher) requeue(m model.QueuedMessage) {
	p.park(m)
}

// park appends to the queue, recording the dropped metric before the new
// tail lands when eviction occurs.
func (p *Publisher) park(m model.QueuedMessage) {
	evicted, dropped := p.queue.Enqueue(m)
	if dropped {
		p.metrics.IncDropped()
		p.logger.Warnf("Offline queue at capacity (%d), dropped oldest message for %s", p.queue.Capacity(), evicted.Topic)
		// Fire-and-forget alert; queue pressure must not slow the publish path.
		if err := p.notifier.NotifyMessageDropped(context.Background(), evicted); err != nil {
			p.logger.Warnf("Failed to send drop notification: %v", err)
		}
	}
}

// Flush republishes queued messages in strict FIFO order. A message that
// fails to publish is pushed back onto the tail rather than dropped, and the
// pass ends after draining what was present at flush-start, so requeued
// failures wait for the next pass.
//
// Returns the number of messages successfully republished.
func (p *Publisher) Flush() int {
	pending := p.queue.Len()
	if pending == 0 {
		return 0
	}

	p.logger.Infof("Flushing %d queued messages", pending)

	flushed := 0
	for i := 0; i < pending; i++ {
		m, ok := p.queue.Dequeue()
		if !ok {
			break
		}

		// Every republish attempt goes out under a fresh message ID;
		// consumers deduplicate on entity identity, not message ID.
		envelope := m.Envelope.WithFreshMessageID()
		payload, err := envelope.Encode()
		if err != nil {
			p.metrics.IncPublishFailures()
			p.logger.Errorf("Dropping unencodable queued message for %s: %v", m.Topic, err)
			continue
		}

		if err := p.session.Publish(m.Topic, m.QoS, m.Retain, payload); err != nil {
			p.metrics.IncPublishFailures()
			p.requeue(model.NewQueuedMessage(m.Topic, envelope, m.QoS, m.Retain))
			p.logger.Warnf("Flush republish to %s failed, requeued at tail: %v", m.Topic, err)
			continue
		}

		p.metrics.IncPublished()
		flushed++
	}

	p.metrics.IncFlushes()
	p.logger.Infof("Flush complete: %d/%d republished, %d remaining", flushed, pending, p.queue.Len())
	return flushed
}

// QueueLength returns the current offline queue length.
func (p *Publisher) QueueLength() int {
	return p.queue.Len()
}
