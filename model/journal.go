package model

import (
	"database/sql"
	"time"
)

// JournalEntry is one row of the append-only audit journal.
// Entries are written once per business mutation and never updated or
// deleted. Writes are best-effort: a failed journal write is logged by the
// caller but never fails the business operation that triggered it.
type JournalEntry struct {
	ID         int64          `json:"id"`
	EntityType string         `json:"entityType" db:"entity_type"`
	EntityID   string         `json:"entityID" db:"entity_id"`
	Operation  Operation      `json:"operation" db:"operation"`
	Payload    string         `json:"payload" db:"payload"`
	UserID     sql.NullString `json:"userID" db:"user_id"`
	CreatedAt  time.Time      `json:"createdAt" db:"created_at"`
}

// TableName returns the database table name for JournalEntry.
func (t JournalEntry) TableName() string {
	return tablePrefix + "journal"
}

// NewJournalEntry creates a journal entry for a business mutation.
// userID is optional; pass the empty string when the change is not
// attributable to a user.
func NewJournalEntry(entityType, entityID string, operation Operation, payload, userID string) JournalEntry {
	entry := JournalEntry{
		ID:         0,
		EntityType: entityType,
		EntityID:   entityID,
		Operation:  operation,
		Payload:    payload,
		CreatedAt:  time.Now(),
	}
	if userID != "" {
		entry.UserID = sql.NullString{String: userID, Valid: true}
	}
	return entry
}
