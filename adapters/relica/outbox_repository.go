package relica

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coregx/relica"
	"github.com/coregx/vesselsync"
	"github.com/coregx/vesselsync/model"
)

// OutboxRepository implements vesselsync.OutboxRepository using Relica.
type OutboxRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewOutboxRepository creates a new OutboxRepository with default table prefix.
func NewOutboxRepository(sqlDB *sql.DB, driverName string) *OutboxRepository {
	return &OutboxRepository{
		db:          relica.WrapDB(sqlDB, driverName),
		tablePrefix: "vesselsync_",
	}
}

// NewOutboxRepositoryWithPrefix creates a new OutboxRepository with custom table prefix.
func NewOutboxRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *OutboxRepository {
	return &OutboxRepository{
		db:          relica.WrapDB(sqlDB, driverName),
		tablePrefix: prefix,
	}
}

func (r *OutboxRepository) tableName() string {
	return r.tablePrefix + "outbox"
}

// Load retrieves an outbox event by ID.
func (r *OutboxRepository) Load(ctx context.Context, id int64) (model.OutboxEvent, error) {
	var event model.OutboxEvent

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("id = ?", id).
		WithContext(ctx).
		One(&event)

	if errors.Is(err, sql.ErrNoRows) {
		return event, vesselsync.ErrNoData
	}
	if err != nil {
		return event, vesselsync.NewErrorWithCause(vesselsync.ErrCodeDatabase, "failed to load outbox event", err)
	}

	return event, nil
}

// Save creates or updates an outbox event.
func (r *OutboxRepository) Save(ctx context.Context, m *model.OutboxEvent) (*model.OutboxEvent, error) {
	if m.ID == 0 {
		// Insert using Model() API - auto-populates m.ID
		err := r.db.WithContext(ctx).Model(m).Table(r.tableName()).Insert()
		if err != nil {
			return m, vesselsync.NewErrorWithCause(vesselsync.ErrCodeDatabase, "failed to insert outbox event", err)
		}
		return m, nil
	}

	// Update using Model() API - auto WHERE id = ?
	err := r.db.WithContext(ctx).Model(m).Table(r.tableName()).Update()
	if err != nil {
		return m, vesselsync.NewErrorWithCause(vesselsync.ErrCodeDatabase, "failed to update outbox event", err)
	}

	return m, nil
}

// FindUnprocessed retrieves unprocessed events oldest-first, ready for the
// next sweep pass.
func (r *OutboxRepository) FindUnprocessed(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var events []model.OutboxEvent

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("processed = ?", false).
		OrderBy("created_at ASC").
		Limit(int64(limit)).
		WithContext(ctx).
		All(&events)

	if err != nil {
		return nil, vesselsync.NewErrorWithCause(vesselsync.ErrCodeDatabase, "failed to find unprocessed events", err)
	}

	if len(events) == 0 {
		return nil, vesselsync.ErrNoData
	}

	return events, nil
}

// FindFailed retrieves unprocessed events whose attempt count reached the
// dead-letter threshold, oldest first.
func (r *OutboxRepository) FindFailed(ctx context.Context, threshold, limit int) ([]model.OutboxEvent, error) {
	var events []model.OutboxEvent

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("processed = ? AND processing_attempts >= ?", false, threshold).
		OrderBy("created_at ASC").
		Limit(int64(limit)).
		WithContext(ctx).
		All(&events)

	if err != nil {
		return nil, vesselsync.NewErrorWithCause(vesselsync.ErrCodeDatabase, "failed to find failed events", err)
	}

	if len(events) == 0 {
		return nil, vesselsync.ErrNoData
	}

	return events, nil
}

// CountUnprocessed returns the number of events still awaiting processing.
func (r *OutboxRepository) CountUnprocessed(ctx context.Context) (int, error) {
	var count int

	err := r.db.WithContext(ctx).Select("COUNT(*)").
		From(r.tableName()).
		Where("processed = ?", false).
		WithContext(ctx).
		One(&count)

	if err != nil {
		return 0, vesselsync.NewErrorWithCause(vesselsync.ErrCodeDatabase, "failed to count unprocessed events", err)
	}

	return count, nil
}
