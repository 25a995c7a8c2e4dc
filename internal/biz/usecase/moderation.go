package usecase

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/modwatch/modwatch/internal/biz/domain"
	"github.com/modwatch/modwatch/internal/biz/repo"
	"github.com/modwatch/modwatch/internal/resilience"
)

const quotaCacheSize = 256

// ModerationUsecase is the API surface consumed by the command/event layer.
// All writes go through the retry wrapper; the repositories themselves do
// not retry.
type ModerationUsecase struct {
	quotas   repo.QuotaRepo
	counters repo.CounterRepo
	audit    repo.AuditRepo
	usage    repo.UsageRepo
	store    repo.Store

	retry *resilience.Retryer

	// Read-through cache over quota limits. Invalidated on every write and
	// never consulted as a fallback when a write fails; the store stays the
	// sole source of truth.
	quotaCache *lru.Cache[string, int]

	log *slog.Logger
}

// NewModerationUsecase wires the facade over the repositories.
func NewModerationUsecase(
	quotas repo.QuotaRepo,
	counters repo.CounterRepo,
	audit repo.AuditRepo,
	usage repo.UsageRepo,
	store repo.Store,
	retry *resilience.Retryer,
	log *slog.Logger,
) *ModerationUsecase {
	if log == nil {
		log = slog.Default()
	}
	cache, _ := lru.New[string, int](quotaCacheSize)
	return &ModerationUsecase{
		quotas:     quotas,
		counters:   counters,
		audit:      audit,
		usage:      usage,
		store:      store,
		retry:      retry,
		quotaCache: cache,
		log:        log,
	}
}

// GetQuota returns the guild's daily limit, 0 when none is set.
func (uc *ModerationUsecase) GetQuota(ctx context.Context, guildID string) (int, error) {
	if limit, ok := uc.quotaCache.Get(guildID); ok {
		return limit, nil
	}
	limit, err := uc.quotas.GetQuota(ctx, guildID)
	if err != nil {
		return 0, err
	}
	uc.quotaCache.Add(guildID, limit)
	return limit, nil
}

// SetQuota persists the guild's quota with moderator provenance. The cached
// value is invalidated only after the write succeeds; a failed write leaves
// both store and cache untouched.
func (uc *ModerationUsecase) SetQuota(ctx context.Context, guildID string, limit int, updatedBy, updatedByName string) error {
	err := uc.retry.Do(ctx, func(ctx context.Context) error {
		return uc.quotas.SetQuota(ctx, guildID, limit, updatedBy, updatedByName)
	})
	if err != nil {
		return err
	}
	uc.quotaCache.Remove(guildID)
	return nil
}

// LoadAllQuotas bulk-reads every stored quota, used at startup to report how
// many guilds have active settings.
func (uc *ModerationUsecase) LoadAllQuotas(ctx context.Context) (map[string]int, error) {
	return uc.quotas.LoadAll(ctx)
}

// IncrementMessageCount atomically bumps the user's counter for the given
// day and returns the new count.
func (uc *ModerationUsecase) IncrementMessageCount(ctx context.Context, guildID, userID, date string) (int, error) {
	return resilience.DoValue(ctx, uc.retry, func(ctx context.Context) (int, error) {
		return uc.counters.IncrementAndGet(ctx, guildID, userID, date)
	})
}

// GetMessageCount returns the user's count for the given day, 0 when absent.
func (uc *ModerationUsecase) GetMessageCount(ctx context.Context, guildID, userID, date string) (int, error) {
	return uc.counters.GetCount(ctx, guildID, userID, date)
}

// ResetMessageCount zeroes the user's counter for the given day.
func (uc *ModerationUsecase) ResetMessageCount(ctx context.Context, guildID, userID, date string) error {
	return uc.retry.Do(ctx, func(ctx context.Context) error {
		return uc.counters.ResetCount(ctx, guildID, userID, date)
	})
}

// TrackResult is the verdict for one tracked message.
type TrackResult struct {
	Count    int
	Limit    int
	Exceeded bool
}

// TrackMessage handles one message from a watchlisted user: looks up the
// guild's quota and, when enforcement is on, increments today's counter.
// Exceeded tells the caller to apply a timeout; recording the timeout in the
// audit log stays the caller's move since only it knows whether the platform
// action succeeded.
func (uc *ModerationUsecase) TrackMessage(ctx context.Context, guildID, userID string) (*TrackResult, error) {
	limit, err := uc.GetQuota(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up quota: %w", err)
	}
	if limit <= 0 {
		return &TrackResult{Limit: limit}, nil
	}

	count, err := uc.IncrementMessageCount(ctx, guildID, userID, domain.Today())
	if err != nil {
		// Bookkeeping failed; record it without blocking the caller's
		// handling of the message itself.
		uc.appendTolerant(ctx, &domain.AuditEntry{
			GuildID:      guildID,
			Action:       domain.ActionMessageTrackingError,
			TargetUserID: userID,
			Details:      map[string]any{"error": err.Error()},
		})
		return nil, err
	}

	trackedMessages.Inc()
	result := &TrackResult{Count: count, Limit: limit, Exceeded: count > limit}
	if result.Exceeded {
		quotaExceeded.Inc()
	}
	return result, nil
}

// LogAction appends one audit entry through the retry wrapper.
func (uc *ModerationUsecase) LogAction(ctx context.Context, e *domain.AuditEntry) error {
	return uc.retry.Do(ctx, func(ctx context.Context) error {
		return uc.audit.Append(ctx, e)
	})
}

// LogQuotaSet records a moderator changing the guild quota.
func (uc *ModerationUsecase) LogQuotaSet(ctx context.Context, guildID, moderatorID, moderatorName string, oldQuota, newQuota int) error {
	return uc.LogAction(ctx, &domain.AuditEntry{
		GuildID:       guildID,
		Action:        domain.ActionQuotaSet,
		ModeratorID:   moderatorID,
		ModeratorName: moderatorName,
		Details:       map[string]any{"oldQuota": oldQuota, "newQuota": newQuota},
	})
}

// LogTimeout records a manual timeout applied to a user.
func (uc *ModerationUsecase) LogTimeout(ctx context.Context, guildID, moderatorID, moderatorName, targetID, targetName, reason string, durationMs int64) error {
	return uc.LogAction(ctx, &domain.AuditEntry{
		GuildID:        guildID,
		Action:         domain.ActionTimeout,
		ModeratorID:    moderatorID,
		ModeratorName:  moderatorName,
		TargetUserID:   targetID,
		TargetUserName: targetName,
		Details:        map[string]any{"reason": reason, "durationMs": durationMs},
	})
}

// LogFree records a moderator lifting a user's timeout.
func (uc *ModerationUsecase) LogFree(ctx context.Context, guildID, moderatorID, moderatorName, targetID, targetName, reason string) error {
	return uc.LogAction(ctx, &domain.AuditEntry{
		GuildID:        guildID,
		Action:         domain.ActionFree,
		ModeratorID:    moderatorID,
		ModeratorName:  moderatorName,
		TargetUserID:   targetID,
		TargetUserName: targetName,
		Details:        map[string]any{"reason": reason},
	})
}

// LogAutoTimeout records an automatic quota-exceeded timeout. The moderator
// fields stay empty: nobody pressed the button.
func (uc *ModerationUsecase) LogAutoTimeout(ctx context.Context, guildID, targetID, targetName string, messageCount, quotaLimit int) error {
	return uc.LogAction(ctx, &domain.AuditEntry{
		GuildID:        guildID,
		Action:         domain.ActionAutoTimeout,
		TargetUserID:   targetID,
		TargetUserName: targetName,
		Details:        map[string]any{"messageCount": messageCount, "quotaLimit": quotaLimit},
	})
}

// LogQuotaReset records a counter reset for a user.
func (uc *ModerationUsecase) LogQuotaReset(ctx context.Context, guildID, moderatorID, moderatorName, targetID, targetName, reason string) error {
	return uc.LogAction(ctx, &domain.AuditEntry{
		GuildID:        guildID,
		Action:         domain.ActionQuotaReset,
		ModeratorID:    moderatorID,
		ModeratorName:  moderatorName,
		TargetUserID:   targetID,
		TargetUserName: targetName,
		Details:        map[string]any{"reason": reason},
	})
}

// LogWatchlistRoleCreated records automatic creation of the watchlist role.
func (uc *ModerationUsecase) LogWatchlistRoleCreated(ctx context.Context, guildID, guildName string, onJoin bool) error {
	details := map[string]any{"guildName": guildName, "automatic": true}
	if onJoin {
		details["onJoin"] = true
	}
	return uc.LogAction(ctx, &domain.AuditEntry{
		GuildID: guildID,
		Action:  domain.ActionWatchlistRoleCreated,
		Details: details,
	})
}

// AuditTrail returns up to limit entries for the guild in chronological order.
func (uc *ModerationUsecase) AuditTrail(ctx context.Context, guildID string, limit int) ([]*domain.AuditEntry, error) {
	return uc.audit.ListByGuild(ctx, guildID, limit)
}

// IncrementCommandUsage bumps the named command's telemetry counter.
func (uc *ModerationUsecase) IncrementCommandUsage(ctx context.Context, commandName string) (int, error) {
	return resilience.DoValue(ctx, uc.retry, func(ctx context.Context) (int, error) {
		return uc.usage.IncrementUsage(ctx, commandName)
	})
}

// CheckIntegrity runs the storage engine's consistency check.
func (uc *ModerationUsecase) CheckIntegrity(ctx context.Context) (bool, error) {
	healthy, err := uc.store.CheckIntegrity(ctx)
	if err != nil || !healthy {
		integrityFailures.Inc()
	}
	return healthy, err
}

// DatabaseStats returns aggregate row counts and oldest-record markers.
func (uc *ModerationUsecase) DatabaseStats(ctx context.Context) (*repo.Stats, error) {
	return uc.store.Stats(ctx)
}

// CleanupCounters deletes counters older than the retention window and
// returns how many rows went away.
func (uc *ModerationUsecase) CleanupCounters(ctx context.Context, days int) (int64, error) {
	return resilience.DoValue(ctx, uc.retry, func(ctx context.Context) (int64, error) {
		return uc.counters.CleanupOlderThan(ctx, days)
	})
}

// CleanupAuditLog deletes audit entries older than the retention window and
// returns how many rows went away.
func (uc *ModerationUsecase) CleanupAuditLog(ctx context.Context, days int) (int64, error) {
	return resilience.DoValue(ctx, uc.retry, func(ctx context.Context) (int64, error) {
		return uc.audit.CleanupOlderThan(ctx, days)
	})
}

// ExecuteWithRetry wraps an arbitrary operation in the facade's retry policy.
func (uc *ModerationUsecase) ExecuteWithRetry(ctx context.Context, op func(ctx context.Context) error) error {
	return uc.retry.Do(ctx, op)
}

// appendTolerant logs audit failures instead of surfacing them; bookkeeping
// never blocks the primary action.
func (uc *ModerationUsecase) appendTolerant(ctx context.Context, e *domain.AuditEntry) {
	if err := uc.LogAction(ctx, e); err != nil {
		auditAppendFailures.Inc()
		uc.log.Error("failed to append audit entry", "action", e.Action, "guild", e.GuildID, "error", err)
	}
}
