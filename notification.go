package vesselsync

import (
	"context"

	"github.com/coregx/vesselsync/model"
)

// NotificationService defines an optional interface for alerting on sync
// system events (queue evictions, dead-lettered outbox events).
//
// Implementations might send emails, Slack messages, SMS, or log to
// monitoring systems.
type NotificationService interface {
	// NotifyMessageDropped is called when the offline queue evicts its
	// oldest message under capacity pressure.
	NotifyMessageDropped(ctx context.Context, dropped model.QueuedMessage) error

	// NotifyEventDeadLettered is called when an outbox event crosses the
	// processing-attempt threshold and is flagged for manual triage.
	NotifyEventDeadLettered(ctx context.Context, event model.OutboxEvent) error
}

// NoOpNotificationService is a no-op implementation of NotificationService.
// Use this when notifications are not needed.
type NoOpNotificationService struct{}

// NotifyMessageDropped does nothing.
func (n *NoOpNotificationService) NotifyMessageDropped(_ context.Context, _ model.QueuedMessage) error {
	return nil
}

// NotifyEventDeadLettered does nothing.
func (n *NoOpNotificationService) NotifyEventDeadLettered(_ context.Context, _ model.OutboxEvent) error {
	return nil
}

// LoggingNotificationService is a simple implementation that logs notifications.
type LoggingNotificationService struct {
	logger Logger
}

// NewLoggingNotificationService creates a new LoggingNotificationService.
func NewLoggingNotificationService(logger Logger) *LoggingNotificationService {
	return &LoggingNotificationService{logger: logger}
}

// NotifyMessageDropped logs the eviction.
func (n *LoggingNotificationService) NotifyMessageDropped(_ context.Context, dropped model.QueuedMessage) error {
	n.logger.Warnf("Offline queue full, dropped oldest message: topic=%s, entity=%s, age=%v",
		dropped.Topic, dropped.Envelope.Entity, dropped.Age())
	return nil
}

// NotifyEventDeadLettered logs the dead-letter crossing.
func (n *LoggingNotificationService) NotifyEventDeadLettered(_ context.Context, event model.OutboxEvent) error {
	n.logger.Warnf("Outbox event dead-lettered: id=%d, type=%s, attempts=%d, age=%v",
		event.ID, event.EventType, event.ProcessingAttempts, event.GetAge())
	return nil
}
