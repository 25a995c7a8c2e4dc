package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/modwatch/modwatch/internal/biz/domain"
	"github.com/modwatch/modwatch/internal/biz/repo"
)

// quotaRepo implements the quota settings repository
type quotaRepo struct {
	store *Store
}

// NewQuotaRepo creates the quota repository backed by the store.
func NewQuotaRepo(store *Store) repo.QuotaRepo {
	return &quotaRepo{store: store}
}

// GetQuota returns the guild's daily limit, 0 when the guild has no row.
func (r *quotaRepo) GetQuota(ctx context.Context, guildID string) (int, error) {
	db, err := r.store.handle()
	if err != nil {
		return 0, err
	}

	var limit int
	err = db.QueryRowContext(ctx, `
		SELECT daily_limit FROM quota_settings WHERE guild_id = ?
	`, guildID).Scan(&limit)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query quota for guild %s: %w", guildID, err)
	}
	return limit, nil
}

// SetQuota upserts the guild's quota row. Limits are stored exactly as
// given; callers validate range.
func (r *quotaRepo) SetQuota(ctx context.Context, guildID string, limit int, updatedBy, updatedByName string) error {
	db, err := r.store.handle()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO quota_settings (guild_id, daily_limit, updated_at, updated_by, updated_by_name)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			daily_limit     = excluded.daily_limit,
			updated_at      = excluded.updated_at,
			updated_by      = excluded.updated_by,
			updated_by_name = excluded.updated_by_name
	`, guildID, limit, time.Now().UnixMilli(), nullable(updatedBy), nullable(updatedByName))
	if err != nil {
		return fmt.Errorf("failed to set quota for guild %s: %w", guildID, err)
	}
	return nil
}

// GetQuotaSetting returns the full quota row, nil when absent.
func (r *quotaRepo) GetQuotaSetting(ctx context.Context, guildID string) (*domain.QuotaSetting, error) {
	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	var (
		setting     domain.QuotaSetting
		updatedAt   int64
		updatedBy   sql.NullString
		updatedName sql.NullString
	)
	err = db.QueryRowContext(ctx, `
		SELECT guild_id, daily_limit, updated_at, updated_by, updated_by_name
		FROM quota_settings
		WHERE guild_id = ?
	`, guildID).Scan(&setting.GuildID, &setting.DailyLimit, &updatedAt, &updatedBy, &updatedName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query quota setting for guild %s: %w", guildID, err)
	}

	setting.UpdatedAt = time.UnixMilli(updatedAt)
	setting.UpdatedBy = updatedBy.String
	setting.UpdatedByName = updatedName.String
	return &setting, nil
}

// LoadAll returns guildID -> daily limit for every stored row.
func (r *quotaRepo) LoadAll(ctx context.Context) (map[string]int, error) {
	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT guild_id, daily_limit FROM quota_settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to load quotas: %w", err)
	}
	defer rows.Close()

	quotas := make(map[string]int)
	for rows.Next() {
		var guildID string
		var limit int
		if err := rows.Scan(&guildID, &limit); err != nil {
			return nil, fmt.Errorf("failed to scan quota row: %w", err)
		}
		quotas[guildID] = limit
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quota rows: %w", err)
	}
	return quotas, nil
}

// nullable maps the empty string to SQL NULL for identity columns that are
// absent on system-initiated changes.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
