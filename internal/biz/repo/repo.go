package repo

import (
	"context"
	"time"

	"github.com/modwatch/modwatch/internal/biz/domain"
)

// QuotaRepo is the per-guild quota repository.
type QuotaRepo interface {
	// GetQuota returns the guild's daily limit, 0 when no row exists.
	GetQuota(ctx context.Context, guildID string) (int, error)

	// SetQuota upserts the guild's quota row, stamping updated_at and the
	// moderator identity. Limits are stored as given; range validation is
	// the caller's job.
	SetQuota(ctx context.Context, guildID string, limit int, updatedBy, updatedByName string) error

	// GetQuotaSetting returns the full row, nil when no row exists.
	GetQuotaSetting(ctx context.Context, guildID string) (*domain.QuotaSetting, error)

	// LoadAll returns guildID -> daily limit for every stored row.
	LoadAll(ctx context.Context) (map[string]int, error)
}

// CounterRepo is the per-guild-per-user daily message counter repository.
type CounterRepo interface {
	// IncrementAndGet atomically creates-or-increments the counter for the
	// key and returns the new value.
	IncrementAndGet(ctx context.Context, guildID, userID, date string) (int, error)

	// GetCount returns the counter value, 0 when no row exists.
	GetCount(ctx context.Context, guildID, userID, date string) (int, error)

	// ResetCount sets the counter to 0, creating the row if absent.
	ResetCount(ctx context.Context, guildID, userID, date string) error

	// CleanupOlderThan deletes rows whose date is strictly before
	// today-days and returns how many were deleted.
	CleanupOlderThan(ctx context.Context, days int) (int64, error)
}

// AuditRepo is the append-only moderation audit log.
type AuditRepo interface {
	// Append inserts one immutable entry. A nil details payload is stored
	// as SQL NULL.
	Append(ctx context.Context, e *domain.AuditEntry) error

	// ListByGuild returns up to limit entries for the guild in chronological
	// order (ascending timestamp, ties broken by insertion id).
	ListByGuild(ctx context.Context, guildID string, limit int) ([]*domain.AuditEntry, error)

	// CleanupOlderThan deletes entries with a timestamp before now-days and
	// returns how many were deleted.
	CleanupOlderThan(ctx context.Context, days int) (int64, error)
}

// UsageRepo counts command invocations by name.
type UsageRepo interface {
	// IncrementUsage atomically increments the named counter and returns
	// the new value.
	IncrementUsage(ctx context.Context, commandName string) (int, error)

	// GetUsage returns the counter value, 0 when no row exists.
	GetUsage(ctx context.Context, commandName string) (int, error)
}

// Stats is an aggregate snapshot of the store, used for operator reporting.
type Stats struct {
	QuotaRows         int64
	CounterRows       int64
	AuditRows         int64
	UsageRows         int64
	OldestCounterDate string    // empty when no counters exist
	OldestAuditEntry  time.Time // zero when no entries exist
}

// Store is the storage engine lifecycle consumed by the maintenance layer.
type Store interface {
	// CheckIntegrity runs the engine's consistency check and reports
	// whether the store is healthy.
	CheckIntegrity(ctx context.Context) (bool, error)

	// Stats returns aggregate row counts and oldest-record markers.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases the underlying handle. Safe to call more than once.
	Close() error
}
