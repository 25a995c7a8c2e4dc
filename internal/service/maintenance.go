package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/modwatch/modwatch/internal/biz/domain"
	"github.com/modwatch/modwatch/internal/biz/usecase"
)

// MaintenanceScheduler runs the recurring housekeeping the store needs:
// retention cleanup for counters and audit entries, and a periodic integrity
// self-check. Failures are logged and audited, never fatal.
type MaintenanceScheduler struct {
	moderation *usecase.ModerationUsecase

	cleanupInterval   time.Duration
	integrityInterval time.Duration
	counterRetention  int // days
	auditRetention    int // days

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *slog.Logger
}

// MaintenanceConfig tunes the scheduler.
type MaintenanceConfig struct {
	CleanupInterval      time.Duration
	IntegrityInterval    time.Duration
	CounterRetentionDays int
	AuditRetentionDays   int
}

// NewMaintenanceScheduler creates a scheduler over the moderation facade.
func NewMaintenanceScheduler(moderation *usecase.ModerationUsecase, cfg MaintenanceConfig, log *slog.Logger) *MaintenanceScheduler {
	if log == nil {
		log = slog.Default()
	}
	return &MaintenanceScheduler{
		moderation:        moderation,
		cleanupInterval:   cfg.CleanupInterval,
		integrityInterval: cfg.IntegrityInterval,
		counterRetention:  cfg.CounterRetentionDays,
		auditRetention:    cfg.AuditRetentionDays,
		log:               log,
	}
}

// Start launches the cleanup and integrity loops.
func (s *MaintenanceScheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.cleanupLoop()
	go s.integrityLoop()

	s.log.Info("maintenance scheduler started",
		"cleanup_interval", s.cleanupInterval, "integrity_interval", s.integrityInterval)
}

// Stop cancels the loops and waits for them to drain.
func (s *MaintenanceScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info("maintenance scheduler stopped")
}

func (s *MaintenanceScheduler) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

func (s *MaintenanceScheduler) integrityLoop() {
	defer s.wg.Done()

	// Check once at startup, then on the schedule.
	s.runIntegrityCheck()

	ticker := time.NewTicker(s.integrityInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runIntegrityCheck()
		}
	}
}

// runCleanup applies the retention windows to counters and audit entries.
func (s *MaintenanceScheduler) runCleanup() {
	ctx := context.Background()

	counters, err := s.moderation.CleanupCounters(ctx, s.counterRetention)
	if err != nil {
		s.log.Error("counter retention cleanup failed", "error", err)
	} else if counters > 0 {
		s.log.Info("cleaned up old counters", "deleted", counters, "retention_days", s.counterRetention)
	}

	entries, err := s.moderation.CleanupAuditLog(ctx, s.auditRetention)
	if err != nil {
		s.log.Error("audit retention cleanup failed", "error", err)
	} else if entries > 0 {
		s.log.Info("cleaned up old audit entries", "deleted", entries, "retention_days", s.auditRetention)
	}
}

// runIntegrityCheck probes the store and records an audit entry when it is
// unhealthy. An unhealthy store keeps running; recovery happens on the next
// open.
func (s *MaintenanceScheduler) runIntegrityCheck() {
	ctx := context.Background()

	healthy, err := s.moderation.CheckIntegrity(ctx)
	if err != nil {
		s.log.Error("integrity check failed to run", "error", err)
		s.auditIntegrityProblem(ctx, err.Error())
		return
	}
	if !healthy {
		s.log.Error("store integrity check reported problems")
		s.auditIntegrityProblem(ctx, "integrity_check reported an unhealthy store")
		return
	}
	s.log.Debug("store integrity check passed")
}

func (s *MaintenanceScheduler) auditIntegrityProblem(ctx context.Context, detail string) {
	err := s.moderation.LogAction(ctx, &domain.AuditEntry{
		GuildID: "system",
		Action:  domain.ActionIntegrityCheckError,
		Details: map[string]any{"error": detail},
	})
	if err != nil {
		s.log.Error("failed to audit integrity problem", "error", err)
	}
}
