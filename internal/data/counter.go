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

// counterRepo implements the daily message counter repository
type counterRepo struct {
	store *Store
}

// NewCounterRepo creates the counter repository backed by the store.
func NewCounterRepo(store *Store) repo.CounterRepo {
	return &counterRepo{store: store}
}

// IncrementAndGet atomically creates-or-increments the counter for
// (guildID, userID, date) and returns the new value. The upsert and the
// read-back are one statement, so concurrent increments on the same key
// never lose updates.
func (r *counterRepo) IncrementAndGet(ctx context.Context, guildID, userID, date string) (int, error) {
	db, err := r.store.handle()
	if err != nil {
		return 0, err
	}

	var count int
	err = db.QueryRowContext(ctx, `
		INSERT INTO daily_counters (guild_id, user_id, date, count, last_updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(guild_id, user_id, date) DO UPDATE SET
			count           = count + 1,
			last_updated_at = excluded.last_updated_at
		RETURNING count
	`, guildID, userID, date, time.Now().UnixMilli()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter for %s/%s on %s: %w", guildID, userID, date, err)
	}
	return count, nil
}

// GetCount returns the counter value, 0 when no row exists.
func (r *counterRepo) GetCount(ctx context.Context, guildID, userID, date string) (int, error) {
	db, err := r.store.handle()
	if err != nil {
		return 0, err
	}

	var count int
	err = db.QueryRowContext(ctx, `
		SELECT count FROM daily_counters
		WHERE guild_id = ? AND user_id = ? AND date = ?
	`, guildID, userID, date).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query counter for %s/%s on %s: %w", guildID, userID, date, err)
	}
	return count, nil
}

// ResetCount sets the counter to 0, creating the row when absent. The row
// stays behind so later reads see an explicit zero.
func (r *counterRepo) ResetCount(ctx context.Context, guildID, userID, date string) error {
	db, err := r.store.handle()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO daily_counters (guild_id, user_id, date, count, last_updated_at)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT(guild_id, user_id, date) DO UPDATE SET
			count           = 0,
			last_updated_at = excluded.last_updated_at
	`, guildID, userID, date, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to reset counter for %s/%s on %s: %w", guildID, userID, date, err)
	}
	return nil
}

// CleanupOlderThan deletes counter rows whose date is strictly before
// today-days. Only the date column decides eligibility; day keys compare
// chronologically as strings.
func (r *counterRepo) CleanupOlderThan(ctx context.Context, days int) (int64, error) {
	db, err := r.store.handle()
	if err != nil {
		return 0, err
	}

	cutoff := domain.DayKey(time.Now().AddDate(0, 0, -days))
	result, err := db.ExecContext(ctx, `
		DELETE FROM daily_counters WHERE date < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up counters older than %d days: %w", days, err)
	}
	return result.RowsAffected()
}
