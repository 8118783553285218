package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJournalEntry_TableName(t *testing.T) {
	entry := JournalEntry{}
	assert.Equal(t, "vesselsync_journal", entry.TableName())
}

func TestNewJournalEntry(t *testing.T) {
	entry := NewJournalEntry("work_orders", "wo-42", OpUpdate, `{"id":"wo-42"}`, "user-7")

	assert.Equal(t, int64(0), entry.ID)
	assert.Equal(t, "work_orders", entry.EntityType)
	assert.Equal(t, "wo-42", entry.EntityID)
	assert.Equal(t, OpUpdate, entry.Operation)
	assert.Equal(t, `{"id":"wo-42"}`, entry.Payload)
	assert.True(t, entry.UserID.Valid)
	assert.Equal(t, "user-7", entry.UserID.String)
	assert.WithinDuration(t, time.Now(), entry.CreatedAt, time.Second)
}

func TestNewJournalEntry_UnattributedUser(t *testing.T) {
	entry := NewJournalEntry("alerts", "a-1", OpCreate, "{}", "")

	assert.False(t, entry.UserID.Valid)
}
