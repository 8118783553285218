package relica

import (
	"database/sql"

	"github.com/coregx/vesselsync"
)

// Repositories holds all repository implementations.
type Repositories struct {
	Journal    vesselsync.JournalRepository
	Outbox     vesselsync.OutboxRepository
	ChangeFeed vesselsync.ChangeFeedRepository
}

// NewRepositories creates all repository implementations using Relica.
//
// The db parameter should be an *sql.DB connected to MySQL, PostgreSQL, or SQLite.
// The driverName should be "mysql", "postgres", or "sqlite3".
// The table prefix defaults to "vesselsync_" but can be customized.
func NewRepositories(db *sql.DB, driverName string) *Repositories {
	return &Repositories{
		Journal:    NewJournalRepository(db, driverName),
		Outbox:     NewOutboxRepository(db, driverName),
		ChangeFeed: NewChangeFeedRepository(db, driverName),
	}
}

// NewRepositoriesWithPrefix creates all repository implementations with a custom table prefix.
func NewRepositoriesWithPrefix(db *sql.DB, driverName, prefix string) *Repositories {
	return &Repositories{
		Journal:    NewJournalRepositoryWithPrefix(db, driverName, prefix),
		Outbox:     NewOutboxRepositoryWithPrefix(db, driverName, prefix),
		ChangeFeed: NewChangeFeedRepositoryWithPrefix(db, driverName, prefix),
	}
}
