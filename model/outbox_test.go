package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxEvent_TableName(t *testing.T) {
	event := OutboxEvent{}
	assert.Equal(t, "vesselsync_outbox", event.TableName())
}

func TestNewOutboxEvent(t *testing.T) {
	event := NewOutboxEvent("work_orders.created", `{"id":"wo-1"}`)

	assert.Equal(t, int64(0), event.ID)
	assert.Equal(t, "work_orders.created", event.EventType)
	assert.Equal(t, `{"id":"wo-1"}`, event.Payload)
	assert.False(t, event.Processed)
	assert.Equal(t, 0, event.ProcessingAttempts)
	assert.False(t, event.ProcessedAt.Valid)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, time.Second)
}

func TestEventTypeFor(t *testing.T) {
	tests := []struct {
		operation Operation
		want      string
	}{
		{OpCreate, "alerts.created"},
		{OpUpdate, "alerts.updated"},
		{OpDelete, "alerts.deleted"},
	}

	for _, tt := range tests {
		t.Run(string(tt.operation), func(t *testing.T) {
			assert.Equal(t, tt.want, EventTypeFor("alerts", tt.operation))
		})
	}
}

func TestOutboxEvent_RecordAttempt(t *testing.T) {
	event := NewOutboxEvent("crew.updated", "{}")

	event.RecordAttempt()
	event.RecordAttempt()
	event.RecordAttempt()

	assert.Equal(t, 3, event.ProcessingAttempts)
}

func TestOutboxEvent_MarkProcessed(t *testing.T) {
	event := NewOutboxEvent("crew.updated", "{}")

	err := event.MarkProcessed()
	require.NoError(t, err)
	assert.True(t, event.Processed)
	assert.True(t, event.ProcessedAt.Valid)
	assert.WithinDuration(t, time.Now(), event.ProcessedAt.Time, time.Second)
}

func TestOutboxEvent_MarkProcessed_AlreadyProcessed(t *testing.T) {
	event := NewOutboxEvent("crew.updated", "{}")
	require.NoError(t, event.MarkProcessed())
	firstStamp := event.ProcessedAt.Time

	err := event.MarkProcessed()

	assert.ErrorIs(t, err, ErrEventAlreadyProcessed)
	assert.True(t, event.Processed)
	assert.Equal(t, firstStamp, event.ProcessedAt.Time)
}

func TestOutboxEvent_IsFailed(t *testing.T) {
	event := NewOutboxEvent("equipment.deleted", "{}")

	assert.False(t, event.IsFailed(5))

	for i := 0; i < 5; i++ {
		event.RecordAttempt()
	}
	assert.True(t, event.IsFailed(5))

	// Processed events are never failed, regardless of attempts.
	require.NoError(t, event.MarkProcessed())
	assert.False(t, event.IsFailed(5))
}

func TestOutboxEvent_GetAge(t *testing.T) {
	event := NewOutboxEvent("alerts.created", "{}")
	event.CreatedAt = time.Now().Add(-2 * time.Hour)

	assert.GreaterOrEqual(t, event.GetAge(), 2*time.Hour)
}
