package relica

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"github.com/coregx/relica"
	"github.com/coregx/vesselsync"
	"github.com/coregx/vesselsync/model"
)

// changeFeedScanFactor bounds the driver-side fetch at a multiple of the
// requested limit: headroom for several journal entries per entity without
// loading an entire long-lived journal window into memory. Updates beyond
// the scan window surface on the consumer's next catchup call, since its
// cutoff advances with each replay.
const changeFeedScanFactor = 10

// ChangeFeedRepository implements vesselsync.ChangeFeedRepository using Relica.
//
// The change feed is derived from the journal: the latest journal entry per
// entity at or after the cutoff is the entity's current state for catchup
// purposes. Entities whose latest entry is a delete are replayed too, so
// consumers can drop them locally.
type ChangeFeedRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewChangeFeedRepository creates a new ChangeFeedRepository with default table prefix.
func NewChangeFeedRepository(sqlDB *sql.DB, driverName string) *ChangeFeedRepository {
	return &ChangeFeedRepository{
		db:          relica.WrapDB(sqlDB, driverName),
		tablePrefix: "vesselsync_",
	}
}

// NewChangeFeedRepositoryWithPrefix creates a new ChangeFeedRepository with custom table prefix.
func NewChangeFeedRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *ChangeFeedRepository {
	return &ChangeFeedRepository{
		db:          relica.WrapDB(sqlDB, driverName),
		tablePrefix: prefix,
	}
}

func (r *ChangeFeedRepository) tableName() string {
	return r.tablePrefix + "journal"
}

// FindChangedSince retrieves entities of one class changed at or after the
// cutoff, in ascending last-modified order, capped at limit.
//
// Only each entity's most recent journal entry within the scan window is
// returned; superseded intermediate states are skipped. The fetch itself
// is bounded at changeFeedScanFactor * limit rows, oldest first, so the
// replay favors the changes the consumer has been missing longest.
func (r *ChangeFeedRepository) FindChangedSince(ctx context.Context, entityClass string, since time.Time, limit int) ([]model.ChangeRecord, error) {
	var entries []model.JournalEntry

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("entity_type = ? AND created_at >= ?", entityClass, since).
		OrderBy("created_at ASC").
		Limit(int64(limit * changeFeedScanFactor)).
		WithContext(ctx).
		All(&entries)

	if err != nil {
		return nil, vesselsync.NewErrorWithCause(vesselsync.ErrCodeDatabase, "failed to query change feed", err)
	}

	if len(entries) == 0 {
		return nil, vesselsync.ErrNoData
	}

	return collapseChanges(entries, limit)
}

// collapseChanges reduces a chronological journal slice to one record per
// entity (the latest entry wins), ordered ascending by last-modified time
// and truncated to limit.
func collapseChanges(entries []model.JournalEntry, limit int) ([]model.ChangeRecord, error) {
	index := make(map[string]int, len(entries))
	records := make([]model.ChangeRecord, 0, len(entries))

	for _, entry := range entries {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(entry.Payload), &data); err != nil {
			return nil, vesselsync.NewErrorWithCause(vesselsync.ErrCodeSerialization, "failed to decode journal payload", err)
		}

		if i, ok := index[entry.EntityID]; ok {
			records[i].Data = data
			records[i].ModifiedAt = entry.CreatedAt
			continue
		}
		index[entry.EntityID] = len(records)
		records = append(records, model.ChangeRecord{
			EntityID:   entry.EntityID,
			Data:       data,
			ModifiedAt: entry.CreatedAt,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ModifiedAt.Before(records[j].ModifiedAt)
	})
	if len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}
