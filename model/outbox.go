package model

import (
	"database/sql"
	"fmt"
	"time"
)

// OutboxEvent records the intent to notify in-process listeners of a change.
//
// Lifecycle:
//  1. Created with Processed=false alongside the journal entry
//  2. A batch sweep re-emits the event on the local bus
//  3. On success Processed flips false→true and ProcessedAt is stamped
//  4. ProcessingAttempts increments on every sweep pass, success or failure,
//     so events stuck above a threshold can be triaged as dead letters
//
// The Processed flag is monotonic: it never transitions back to false.
type OutboxEvent struct {
	ID                 int64        `json:"id"`
	EventType          string       `json:"eventType" db:"event_type"`
	Payload            string       `json:"payload" db:"payload"`
	Processed          bool         `json:"processed" db:"processed"`
	ProcessingAttempts int          `json:"processingAttempts" db:"processing_attempts"`
	CreatedAt          time.Time    `json:"createdAt" db:"created_at"`
	ProcessedAt        sql.NullTime `json:"processedAt" db:"processed_at"`
}

// TableName returns the database table name for OutboxEvent.
func (t *OutboxEvent) TableName() string {
	return tablePrefix + "outbox"
}

// NewOutboxEvent creates an unprocessed outbox event.
func NewOutboxEvent(eventType, payload string) OutboxEvent {
	return OutboxEvent{
		ID:                 0,
		EventType:          eventType,
		Payload:            payload,
		Processed:          false,
		ProcessingAttempts: 0,
		CreatedAt:          time.Now(),
	}
}

// EventTypeFor builds the outbox event type for an entity mutation,
// e.g. ("work_orders", OpCreate) → "work_orders.created".
func EventTypeFor(entityType string, operation Operation) string {
	suffix := "updated"
	switch operation {
	case OpCreate:
		suffix = "created"
	case OpDelete:
		suffix = "deleted"
	}
	return fmt.Sprintf("%s.%s", entityType, suffix)
}

// RecordAttempt increments the processing attempt counter.
// Called once per sweep pass regardless of outcome.
func (t *OutboxEvent) RecordAttempt() {
	t.ProcessingAttempts++
}

// MarkProcessed flips the event to processed and stamps ProcessedAt.
// Returns ErrEventAlreadyProcessed if the flag is already set; the flag
// never transitions back to false.
func (t *OutboxEvent) MarkProcessed() error {
	if t.Processed {
		return ErrEventAlreadyProcessed
	}
	t.Processed = true
	t.ProcessedAt = sql.NullTime{Time: time.Now(), Valid: true}
	return nil
}

// IsFailed reports whether the event is stuck: still unprocessed after at
// least threshold sweep passes. Failed events are surfaced for dead-letter
// triage, never skipped.
func (t *OutboxEvent) IsFailed(threshold int) bool {
	return !t.Processed && t.ProcessingAttempts >= threshold
}

// GetAge returns how long the event has existed since creation.
func (t *OutboxEvent) GetAge() time.Duration {
	return time.Since(t.CreatedAt)
}

// Domain errors returned by OutboxEvent business logic methods.
var (
	// ErrEventAlreadyProcessed indicates the processed flag was already set.
	ErrEventAlreadyProcessed = DomainError{Code: "ALREADY_PROCESSED", Message: "Outbox event already processed"}
)
