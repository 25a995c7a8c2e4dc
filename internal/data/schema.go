package data

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements create the four tables and their indexes. All statements
// are idempotent so the schema can be ensured on every startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS quota_settings (
		guild_id        TEXT PRIMARY KEY,
		daily_limit     INTEGER NOT NULL DEFAULT 0,
		updated_at      INTEGER NOT NULL,
		updated_by      TEXT,
		updated_by_name TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS daily_counters (
		guild_id        TEXT NOT NULL,
		user_id         TEXT NOT NULL,
		date            TEXT NOT NULL,
		count           INTEGER NOT NULL DEFAULT 0,
		last_updated_at INTEGER NOT NULL,
		PRIMARY KEY (guild_id, user_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id         TEXT NOT NULL,
		action_type      TEXT NOT NULL,
		moderator_id     TEXT,
		moderator_name   TEXT,
		target_user_id   TEXT,
		target_user_name TEXT,
		details          TEXT,
		timestamp        INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_timestamp ON audit_log(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_guild_ts ON audit_log(guild_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_counters_date ON daily_counters(date)`,
	`CREATE TABLE IF NOT EXISTS command_usage (
		command_name TEXT PRIMARY KEY,
		usage_count  INTEGER NOT NULL DEFAULT 0
	)`,
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
