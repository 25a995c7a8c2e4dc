package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modwatch/modwatch/internal/biz/domain"
	"github.com/modwatch/modwatch/internal/biz/repo"
)

// auditRepo implements the append-only audit log repository
type auditRepo struct {
	store *Store
}

// NewAuditRepo creates the audit log repository backed by the store.
func NewAuditRepo(store *Store) repo.AuditRepo {
	return &auditRepo{store: store}
}

// Append inserts one immutable entry. A nil details payload is stored as
// SQL NULL rather than the string "null".
func (r *auditRepo) Append(ctx context.Context, e *domain.AuditEntry) error {
	db, err := r.store.handle()
	if err != nil {
		return err
	}

	var details any
	if e.Details != nil {
		encoded, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		details = string(encoded)
	}

	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO audit_log (guild_id, action_type, moderator_id, moderator_name,
			target_user_id, target_user_name, details, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.GuildID,
		string(e.Action),
		nullable(e.ModeratorID),
		nullable(e.ModeratorName),
		nullable(e.TargetUserID),
		nullable(e.TargetUserName),
		details,
		ts.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListByGuild returns up to limit entries for the guild in chronological
// order. Ties on timestamp fall back to insertion order via the id column.
func (r *auditRepo) ListByGuild(ctx context.Context, guildID string, limit int) ([]*domain.AuditEntry, error) {
	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, guild_id, action_type, moderator_id, moderator_name,
			target_user_id, target_user_name, details, timestamp
		FROM audit_log
		WHERE guild_id = ?
		ORDER BY timestamp ASC, id ASC
		LIMIT ?
	`, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries for guild %s: %w", guildID, err)
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}
	return entries, nil
}

// CleanupOlderThan deletes entries with a timestamp before now-days and
// returns how many were deleted.
func (r *auditRepo) CleanupOlderThan(ctx context.Context, days int) (int64, error) {
	db, err := r.store.handle()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().AddDate(0, 0, -days).UnixMilli()
	result, err := db.ExecContext(ctx, `
		DELETE FROM audit_log WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up audit entries older than %d days: %w", days, err)
	}
	return result.RowsAffected()
}

func scanAuditEntry(rows *sql.Rows) (*domain.AuditEntry, error) {
	var (
		entry      domain.AuditEntry
		action     string
		moderator  sql.NullString
		modName    sql.NullString
		target     sql.NullString
		targetName sql.NullString
		details    sql.NullString
		ts         int64
	)
	if err := rows.Scan(&entry.ID, &entry.GuildID, &action, &moderator, &modName,
		&target, &targetName, &details, &ts); err != nil {
		return nil, fmt.Errorf("failed to scan audit entry: %w", err)
	}

	entry.Action = domain.ActionType(action)
	entry.ModeratorID = moderator.String
	entry.ModeratorName = modName.String
	entry.TargetUserID = target.String
	entry.TargetUserName = targetName.String
	entry.Timestamp = time.UnixMilli(ts)

	if details.Valid {
		if err := json.Unmarshal([]byte(details.String), &entry.Details); err != nil {
			return nil, fmt.Errorf("failed to decode audit details for entry %d: %w", entry.ID, err)
		}
	}
	return &entry, nil
}
