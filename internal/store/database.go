// Package store persists fired alerts to a local SQLite database.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Open connects to the SQLite database at path and runs migrations.
// Use ":memory:" for a throwaway database.
func Open(path string, logger *zap.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("opening database", zap.String("path", path))

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// sqlite allows a single writer; one connection also keeps :memory: shared
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrate(db, logger); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// migrate creates the schema. Every statement is idempotent.
func migrate(db *sql.DB, logger *zap.Logger) error {
	migrations := []struct {
		name string
		sql  string
	}{
		{
			name: "create_alert_log_table",
			sql: `
CREATE TABLE IF NOT EXISTS alert_log (
    id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    severity TEXT NOT NULL,
    message TEXT NOT NULL,
    suggested_fix TEXT,
    acknowledged BOOLEAN NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alert_log_created_at ON alert_log(created_at);
CREATE INDEX IF NOT EXISTS idx_alert_log_source ON alert_log(source, severity);
			`,
		},
	}

	for _, m := range migrations {
		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		logger.Debug("migration applied", zap.String("name", m.name))
	}
	return nil
}
