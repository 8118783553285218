package vesselsync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coregx/vesselsync/model"
	"github.com/coregx/vesselsync/retry"
)

// DefaultDeadLetterThreshold flags outbox events for triage after this many
// failed sweep passes.
const DefaultDeadLetterThreshold = 5

// EventLog is the durable event log: an append-only audit journal plus a
// mutable outbox recording intent to notify, both independent of network
// state.
//
// RecordAndPublish is best-effort by design: audit and event logging must
// never be able to fail the primary business operation that triggered them,
// so every failure is caught and logged, never returned.
//
// The outbox sweep (ProcessPendingEvents, Run) re-emits events on the
// process-local bus only. Broker publication is the Publisher's job, invoked
// explicitly by the triggering service; the outbox is an audit/replay
// mechanism for in-process listeners, not an alternative broker transport.
type EventLog struct {
	journalRepo         JournalRepository
	outboxRepo          OutboxRepository
	bus                 *EventBus
	logger              Logger
	notifier            NotificationService
	deadLetterThreshold int
	batchSize           int
	backoff             retry.Backoff
}

// EventLogOption configures an EventLog.
type EventLogOption func(*EventLog) error

// NewEventLog creates a new EventLog with the provided options.
//
// Required options:
//   - WithEventLogRepositories: journal and outbox repositories
//   - WithEventLogBus: the process-local event bus
//   - WithEventLogLogger: logger instance
//
// Optional options:
//   - WithEventLogNotifications: dead-letter alerting (default: none)
//   - WithDeadLetterThreshold: triage threshold (default: 5)
//   - WithEventLogBatchSize: sweep batch size (default: 100)
func NewEventLog(opts ...EventLogOption) (*EventLog, error) {
	l := &EventLog{
		notifier:            &NoOpNotificationService{},
		deadLetterThreshold: DefaultDeadLetterThreshold,
		batchSize:           100,
		backoff:             retry.DefaultBackoff(),
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply event log option", err)
		}
	}

	// Validate required dependencies
	if l.journalRepo == nil {
		return nil, NewError(ErrCodeConfiguration, "JournalRepository is required (use WithEventLogRepositories)")
	}
	if l.outboxRepo == nil {
		return nil, NewError(ErrCodeConfiguration, "OutboxRepository is required (use WithEventLogRepositories)")
	}
	if l.bus == nil {
		return nil, NewError(ErrCodeConfiguration, "EventBus is required (use WithEventLogBus)")
	}
	if l.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithEventLogLogger)")
	}

	return l, nil
}

// WithEventLogRepositories sets the required repository dependencies.
func WithEventLogRepositories(journalRepo JournalRepository, outboxRepo OutboxRepository) EventLogOption {
	return func(l *EventLog) error {
		if journalRepo == nil {
			return fmt.Errorf("journalRepo cannot be nil")
		}
		if outboxRepo == nil {
			return fmt.Errorf("outboxRepo cannot be nil")
		}
		l.journalRepo = journalRepo
		l.outboxRepo = outboxRepo
		return nil
	}
}

// WithEventLogBus sets the process-local event bus. Required.
func WithEventLogBus(bus *EventBus) EventLogOption {
	return func(l *EventLog) error {
		if bus == nil {
			return fmt.Errorf("bus cannot be nil")
		}
		l.bus = bus
		return nil
	}
}

// WithEventLogLogger sets the logger instance. Required.
func WithEventLogLogger(logger Logger) EventLogOption {
	return func(l *EventLog) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		l.logger = logger
		return nil
	}
}

// WithEventLogNotifications sets an optional notification service alerted
// when an event crosses the dead-letter threshold.
func WithEventLogNotifications(service NotificationService) EventLogOption {
	return func(l *EventLog) error {
		if service == nil {
			return fmt.Errorf("notification service cannot be nil")
		}
		l.notifier = service
		return nil
	}
}

// WithDeadLetterThreshold sets the processing-attempt count above which an
// unprocessed event is flagged as failed.
func WithDeadLetterThreshold(threshold int) EventLogOption {
	return func(l *EventLog) error {
		if threshold <= 0 {
			return fmt.Errorf("dead letter threshold must be > 0, got %d", threshold)
		}
		l.deadLetterThreshold = threshold
		return nil
	}
}

// WithEventLogBatchSize sets the number of outbox events swept per pass.
func WithEventLogBatchSize(size int) EventLogOption {
	return func(l *EventLog) error {
		if size <= 0 {
			return fmt.Errorf("batch size must be > 0, got %d", size)
		}
		l.batchSize = size
		return nil
	}
}

// RecordAndPublish writes one journal entry and one outbox event for a
// business mutation, then immediately emits the event on the local bus.
//
// Every step is best-effort: failures are logged and swallowed so the
// triggering business operation succeeds or fails independently of audit
// logging. userID is optional; pass the empty string when unattributable.
func (l *EventLog) RecordAndPublish(ctx context.Context, entityType, entityID string, operation model.Operation, data map[string]interface{}, userID string) {
	payload, err := json.Marshal(data)
	if err != nil {
		l.logger.Errorf("Failed to encode event payload for %s/%s: %v", entityType, entityID, err)
		return
	}

	entry := model.NewJournalEntry(entityType, entityID, operation, string(payload), userID)
	if _, err := l.journalRepo.Save(ctx, entry); err != nil {
		l.logger.Errorf("Failed to write journal entry for %s/%s: %v", entityType, entityID, err)
	}

	eventType := model.EventTypeFor(entityType, operation)
	event := model.NewOutboxEvent(eventType, string(payload))
	if _, err := l.outboxRepo.Save(ctx, &event); err != nil {
		l.logger.Errorf("Failed to write outbox event %s for %s/%s: %v", eventType, entityType, entityID, err)
	}

	if _, err := l.bus.Emit(eventType, string(payload)); err != nil {
		l.logger.Warnf("Local listener failed for %s: %v", eventType, err)
	}
}

// ProcessPendingEvents sweeps unprocessed outbox events oldest-first, at
// most limit per call. Each selected event has its attempt counter
// incremented exactly once regardless of outcome; it is marked processed
// only when every local listener accepted the re-emission.
//
// Returns the number of events successfully processed. Individual event
// failures are logged but don't stop the batch.
func (l *EventLog) ProcessPendingEvents(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = l.batchSize
	}

	events, err := l.outboxRepo.FindUnprocessed(ctx, limit)
	if err != nil {
		if IsNoData(err) {
			return 0, nil
		}
		return 0, NewErrorWithCause(ErrCodeDatabase, "failed to find unprocessed events", err)
	}

	processed := 0
	for i := range events {
		if l.processEvent(ctx, &events[i]) {
			processed++
		}
	}

	if processed > 0 {
		l.logger.Infof("Outbox sweep: processed %d/%d events", processed, len(events))
	}
	return processed, nil
}

func (l *EventLog) processEvent(ctx context.Context, event *model.OutboxEvent) bool {
	event.RecordAttempt()

	_, emitErr := l.bus.Emit(event.EventType, event.Payload)
	if emitErr == nil {
		if err := event.MarkProcessed(); err != nil {
			l.logger.Warnf("Outbox event %d: %v", event.ID, err)
		}
	} else {
		l.logger.Warnf("Outbox event %d (%s) re-emission failed (attempt %d): %v",
			event.ID, event.EventType, event.ProcessingAttempts, emitErr)
	}

	if _, err := l.outboxRepo.Save(ctx, event); err != nil {
		l.logger.Errorf("Failed to persist outbox event %d state: %v", event.ID, err)
		return false
	}

	// Alert exactly once, on the pass that crosses the threshold.
	if emitErr != nil && event.ProcessingAttempts == l.deadLetterThreshold {
		if err := l.notifier.NotifyEventDeadLettered(ctx, *event); err != nil {
			l.logger.Warnf("Failed to send dead-letter notification: %v", err)
		}
	}

	return emitErr == nil
}

// FindFailedEvents returns unprocessed events stuck at or above the
// dead-letter threshold, oldest first, for manual triage.
func (l *EventLog) FindFailedEvents(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	events, err := l.outboxRepo.FindFailed(ctx, l.deadLetterThreshold, limit)
	if err != nil {
		if IsNoData(err) {
			return []model.OutboxEvent{}, nil
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to find failed events", err)
	}
	return events, nil
}

// Run starts the outbox sweep loop, processing a batch at the given
// interval until the context is canceled. Consecutive sweep failures back
// off exponentially before the loop resumes its normal cadence.
//
// This method blocks and should typically be run in a goroutine.
func (l *EventLog) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.logger.Info("Outbox sweep started")

	failures := 0
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Outbox sweep stopped")
			return
		case <-ticker.C:
			if _, err := l.ProcessPendingEvents(ctx, l.batchSize); err != nil {
				failures++
				delay := l.backoff.Delay(failures)
				l.logger.Errorf("Outbox sweep failed (%d consecutive), backing off %v: %v", failures, delay, err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(delay):
				}
				continue
			}
			failures = 0
		}
	}
}
