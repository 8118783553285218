package model

import (
	"encoding/json"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// SyncEnvelope is the wire message exchanged over the broker.
// Envelopes are immutable once constructed.
//
// MessageID is regenerated on every publish attempt, including retries, so
// consumers must deduplicate on (entity, data id, operation) rather than on
// MessageID.
//
// Sequence and Total are only set on catchup envelopes: Sequence is the
// 0-based position within the replay and Total the number of rows replayed.
// Consumers use them to detect when a backfill is complete.
type SyncEnvelope struct {
	Kind      EnvelopeKind           `json:"kind"`
	Entity    string                 `json:"entity"`
	Operation Operation              `json:"operation"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	MessageID string                 `json:"messageId"`
	Sequence  *int                   `json:"sequence,omitempty"`
	Total     *int                   `json:"total,omitempty"`
}

// NewDataChangeEnvelope creates an envelope for a live entity change.
// A fresh MessageID is generated on every call.
func NewDataChangeEnvelope(entity string, operation Operation, data map[string]interface{}) SyncEnvelope {
	return SyncEnvelope{
		Kind:      KindDataChange,
		Entity:    entity,
		Operation: operation,
		Data:      data,
		Timestamp: time.Now().UTC(),
		MessageID: uuid.NewString(),
	}
}

// NewCatchupEnvelope creates an envelope for one row of a catchup replay.
// Sequence is the 0-based position of the row, total the replay row count.
func NewCatchupEnvelope(entity string, data map[string]interface{}, sequence, total int) SyncEnvelope {
	return SyncEnvelope{
		Kind:      KindCatchup,
		Entity:    entity,
		Operation: OpUpdate,
		Data:      data,
		Timestamp: time.Now().UTC(),
		MessageID: uuid.NewString(),
		Sequence:  &sequence,
		Total:     &total,
	}
}

// WithFreshMessageID returns a copy of the envelope carrying a newly
// generated MessageID. Every republish attempt, including flush retries,
// goes out under a fresh ID.
func (e SyncEnvelope) WithFreshMessageID() SyncEnvelope {
	e.MessageID = uuid.NewString()
	return e
}

// Validate checks the envelope against the wire contract.
func (e SyncEnvelope) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Kind, validation.Required, validation.In(KindDataChange, KindCatchup)),
		validation.Field(&e.Entity, validation.Required),
		validation.Field(&e.Operation, validation.Required, validation.In(OpCreate, OpUpdate, OpDelete)),
		validation.Field(&e.MessageID, validation.Required),
	)
}

// Encode serializes the envelope to its JSON wire form.
func (e SyncEnvelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses a wire payload back into an envelope.
func DecodeEnvelope(payload []byte) (SyncEnvelope, error) {
	var e SyncEnvelope
	if err := json.Unmarshal(payload, &e); err != nil {
		return SyncEnvelope{}, err
	}
	return e, nil
}
