// Package model contains all domain models and data structures for the vessel sync system.
package model

// tablePrefix is prepended to every database table name.
const tablePrefix = "vesselsync_"

// EnvelopeKind distinguishes live change notifications from catchup replays.
type EnvelopeKind string

const (
	// KindDataChange marks an envelope carrying a live entity change.
	KindDataChange EnvelopeKind = "data_change"

	// KindCatchup marks an envelope replayed on a catchup topic.
	KindCatchup EnvelopeKind = "catchup"
)

// Operation is the mutation type carried by an envelope or journal entry.
type Operation string

const (
	// OpCreate indicates a new entity row.
	OpCreate Operation = "create"

	// OpUpdate indicates an existing entity row changed.
	OpUpdate Operation = "update"

	// OpDelete indicates an entity row was removed.
	OpDelete Operation = "delete"
)

// DomainError represents a domain-level business rule violation.
type DomainError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
}

func (e DomainError) Error() string {
	return e.Message
}
