package relica

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/vesselsync/model"
)

func journalEntry(entityID, payload string, at time.Time) model.JournalEntry {
	return model.JournalEntry{
		EntityType: "work_orders",
		EntityID:   entityID,
		Operation:  model.OpUpdate,
		Payload:    payload,
		CreatedAt:  at,
	}
}

func TestCollapseChanges_LatestEntryPerEntity(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	entries := []model.JournalEntry{
		journalEntry("wo-1", `{"status":"open"}`, base),
		journalEntry("wo-2", `{"status":"open"}`, base.Add(time.Minute)),
		journalEntry("wo-1", `{"status":"done"}`, base.Add(2*time.Minute)),
	}

	records, err := collapseChanges(entries, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Ascending by last-modified: wo-2 (minute 1) before wo-1 (minute 2).
	assert.Equal(t, "wo-2", records[0].EntityID)
	assert.Equal(t, "wo-1", records[1].EntityID)
	assert.Equal(t, "done", records[1].Data["status"], "superseded state must not survive")
	assert.Equal(t, base.Add(2*time.Minute), records[1].ModifiedAt)
}

func TestCollapseChanges_TruncatesToLimit(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	var entries []model.JournalEntry
	for i := 0; i < 6; i++ {
		entries = append(entries, journalEntry(
			fmt.Sprintf("wo-%d", i), `{}`, base.Add(time.Duration(i)*time.Minute)))
	}

	records, err := collapseChanges(entries, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Oldest changes win the truncation.
	for i, r := range records {
		assert.Equal(t, fmt.Sprintf("wo-%d", i), r.EntityID)
	}
}

func TestCollapseChanges_BadPayload(t *testing.T) {
	entries := []model.JournalEntry{journalEntry("wo-1", "not json", time.Now())}

	_, err := collapseChanges(entries, 10)
	assert.Error(t, err)
}
