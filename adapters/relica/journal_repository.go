package relica

import (
	"context"
	"database/sql"

	"github.com/coregx/relica"
	"github.com/coregx/vesselsync"
	"github.com/coregx/vesselsync/model"
)

// JournalRepository implements vesselsync.JournalRepository using Relica.
type JournalRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewJournalRepository creates a new JournalRepository with default table prefix.
func NewJournalRepository(sqlDB *sql.DB, driverName string) *JournalRepository {
	return &JournalRepository{
		db:          relica.WrapDB(sqlDB, driverName),
		tablePrefix: "vesselsync_",
	}
}

// NewJournalRepositoryWithPrefix creates a new JournalRepository with custom table prefix.
func NewJournalRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *JournalRepository {
	return &JournalRepository{
		db:          relica.WrapDB(sqlDB, driverName),
		tablePrefix: prefix,
	}
}

func (r *JournalRepository) tableName() string {
	return r.tablePrefix + "journal"
}

// Save appends a journal entry. The journal is append-only: existing rows
// are never updated or deleted.
func (r *JournalRepository) Save(ctx context.Context, entry model.JournalEntry) (model.JournalEntry, error) {
	// Insert using Model() API - auto-populates entry.ID
	err := r.db.WithContext(ctx).Model(&entry).Table(r.tableName()).Insert()
	if err != nil {
		return entry, vesselsync.NewErrorWithCause(vesselsync.ErrCodeDatabase, "failed to insert journal entry", err)
	}

	return entry, nil
}

// FindByEntity retrieves the most recent journal entries for one entity,
// newest first.
func (r *JournalRepository) FindByEntity(ctx context.Context, entityType, entityID string, limit int) ([]model.JournalEntry, error) {
	var entries []model.JournalEntry

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		OrderBy("created_at DESC").
		Limit(int64(limit)).
		WithContext(ctx).
		All(&entries)

	if err != nil {
		return nil, vesselsync.NewErrorWithCause(vesselsync.ErrCodeDatabase, "failed to find journal entries", err)
	}

	if len(entries) == 0 {
		return nil, vesselsync.ErrNoData
	}

	return entries, nil
}
