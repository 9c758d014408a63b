// Package storage holds the optional session journal: trade notifications and
// connection transitions written for diagnostics. It is never read back into
// the state store.
package storage

import (
	"fmt"

	"dashboard-sync/src/interfaces"
	"dashboard-sync/src/logger"
	"dashboard-sync/src/models"
)

// NewJournal opens the journal selected by storage.db_type. It returns nil
// and no error for "none".
func NewJournal(cfg *models.MConfig, log *logger.Logger) (interfaces.IJournal, error) {
	var (
		journal interfaces.IJournal
		err     error
	)
	switch cfg.Storage.DBType {
	case "", "none":
		return nil, nil
	case "sqlite":
		journal, err = NewAsyncSQLiteDB(cfg, log)
	case "postgres":
		journal, err = NewPostgresDB(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Storage.DBType)
	}
	if err != nil {
		return nil, err
	}
	if err := journal.Initialize(); err != nil {
		journal.Close()
		return nil, fmt.Errorf("initialize %s journal: %w", cfg.Storage.DBType, err)
	}
	return journal, nil
}
