package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/modwatch/modwatch/internal/biz/repo"
)

// usageRepo implements the command usage counter repository
type usageRepo struct {
	store *Store
}

// NewUsageRepo creates the command usage repository backed by the store.
func NewUsageRepo(store *Store) repo.UsageRepo {
	return &usageRepo{store: store}
}

// IncrementUsage atomically increments the named counter and returns the
// new value. Same single-statement upsert contract as message counters.
func (r *usageRepo) IncrementUsage(ctx context.Context, commandName string) (int, error) {
	db, err := r.store.handle()
	if err != nil {
		return 0, err
	}

	var count int
	err = db.QueryRowContext(ctx, `
		INSERT INTO command_usage (command_name, usage_count)
		VALUES (?, 1)
		ON CONFLICT(command_name) DO UPDATE SET usage_count = usage_count + 1
		RETURNING usage_count
	`, commandName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to increment usage for command %s: %w", commandName, err)
	}
	return count, nil
}

// GetUsage returns the counter value, 0 when the command was never used.
func (r *usageRepo) GetUsage(ctx context.Context, commandName string) (int, error) {
	db, err := r.store.handle()
	if err != nil {
		return 0, err
	}

	var count int
	err = db.QueryRowContext(ctx, `
		SELECT usage_count FROM command_usage WHERE command_name = ?
	`, commandName).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query usage for command %s: %w", commandName, err)
	}
	return count, nil
}
