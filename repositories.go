package vesselsync

import (
	"context"
	"time"

	"github.com/coregx/vesselsync/model"
)

// JournalRepository defines the persistence interface for the audit journal.
// Journal entries are append-only: implementations provide Save and reads,
// never updates or deletes.
type JournalRepository interface {
	// Save appends a journal entry.
	// Returns the saved entry with populated ID.
	Save(ctx context.Context, m model.JournalEntry) (model.JournalEntry, error)

	// FindByEntity retrieves journal entries for one entity, newest first.
	// Returns ErrNoData if none found.
	FindByEntity(ctx context.Context, entityType, entityID string, limit int) ([]model.JournalEntry, error)
}

// OutboxRepository defines the persistence interface for outbox events.
type OutboxRepository interface {
	// Save creates a new outbox event (if ID=0) or updates an existing one.
	// Returns the saved event with populated ID.
	Save(ctx context.Context, m *model.OutboxEvent) (*model.OutboxEvent, error)

	// FindUnprocessed retrieves unprocessed events, oldest first.
	// Returns ErrNoData if none found.
	FindUnprocessed(ctx context.Context, limit int) ([]model.OutboxEvent, error)

	// FindFailed retrieves unprocessed events with processing_attempts >=
	// threshold, oldest first. Used for dead-letter triage.
	FindFailed(ctx context.Context, threshold, limit int) ([]model.OutboxEvent, error)

	// CountUnprocessed returns the number of unprocessed events.
	CountUnprocessed(ctx context.Context) (int, error)
}

// ChangeFeedRepository answers the single query shape the catchup replayer
// needs: entity rows changed since a timestamp, ordered ascending by
// last-modified time, capped at a limit. The relational store behind it is
// an external collaborator.
type ChangeFeedRepository interface {
	// FindChangedSince retrieves rows of the entity class modified at or
	// after since, oldest first, at most limit rows.
	// Returns ErrNoData if none found.
	FindChangedSince(ctx context.Context, entityClass string, since time.Time, limit int) ([]model.ChangeRecord, error)
}
