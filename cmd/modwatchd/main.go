// modwatchd runs the moderation store's maintenance daemon: retention
// cleanup and recurring integrity checks against the SQLite file that the
// command/event layer writes through.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/modwatch/modwatch/internal/biz/usecase"
	"github.com/modwatch/modwatch/internal/conf"
	"github.com/modwatch/modwatch/internal/data"
	"github.com/modwatch/modwatch/internal/resilience"
	"github.com/modwatch/modwatch/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	app := &cli.App{
		Name:  "modwatchd",
		Usage: "moderation quota store maintenance daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db-path",
				Usage:   "path to the moderation SQLite file",
				EnvVars: []string{"MODWATCH_DB_PATH"},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				EnvVars: []string{"DEBUG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run the maintenance scheduler until interrupted",
				Action: runDaemon,
			},
			{
				Name:   "check",
				Usage:  "run one integrity check and exit non-zero if unhealthy",
				Action: runCheck,
			},
			{
				Name:   "stats",
				Usage:  "print aggregate store statistics",
				Action: runStats,
			},
		},
	}
	app.RunAndExitOnError()
}

// setup builds the config, logger, store and facade shared by all commands.
func setup(cctx *cli.Context) (*conf.Config, *data.Store, *usecase.ModerationUsecase, error) {
	cfg := conf.LoadFromEnv()
	if path := cctx.String("db-path"); path != "" {
		cfg.Store.Path = path
	}
	if cctx.Bool("debug") {
		cfg.Debug = true
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	store, err := data.Open(cctx.Context, cfg.Store.Path,
		data.WithBackupKeep(cfg.Store.BackupKeep),
		data.WithLogger(log),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	retry := resilience.New(data.IsRetryable)
	retry.MaxAttempts = cfg.Retry.MaxAttempts
	retry.BaseDelay = cfg.Retry.BaseDelay
	retry.Log = log

	moderation := usecase.NewModerationUsecase(
		data.NewQuotaRepo(store),
		data.NewCounterRepo(store),
		data.NewAuditRepo(store),
		data.NewUsageRepo(store),
		store,
		retry,
		log,
	)
	return cfg, store, moderation, nil
}

func runDaemon(cctx *cli.Context) error {
	cfg, store, moderation, err := setup(cctx)
	if err != nil {
		return err
	}
	defer store.Close()

	quotas, err := moderation.LoadAllQuotas(cctx.Context)
	if err != nil {
		return fmt.Errorf("failed to warm up quotas: %w", err)
	}
	slog.Info("store opened", "path", cfg.Store.Path, "guilds_with_quota", len(quotas))

	scheduler := service.NewMaintenanceScheduler(moderation, service.MaintenanceConfig{
		CleanupInterval:      cfg.Maintenance.CleanupInterval,
		IntegrityInterval:    cfg.Maintenance.IntegrityInterval,
		CounterRetentionDays: cfg.Maintenance.CounterRetentionDays,
		AuditRetentionDays:   cfg.Maintenance.AuditRetentionDays,
	}, slog.Default())

	ctx, cancel := context.WithCancel(cctx.Context)
	defer cancel()
	scheduler.Start(ctx)
	defer scheduler.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	slog.Info("shutting down")
	return nil
}

func runCheck(cctx *cli.Context) error {
	_, store, moderation, err := setup(cctx)
	if err != nil {
		return err
	}
	defer store.Close()

	healthy, err := moderation.CheckIntegrity(cctx.Context)
	if err != nil {
		return fmt.Errorf("integrity check failed to run: %w", err)
	}
	if !healthy {
		return cli.Exit("store integrity check reported problems", 1)
	}
	fmt.Println("ok")
	return nil
}

func runStats(cctx *cli.Context) error {
	_, store, moderation, err := setup(cctx)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := moderation.DatabaseStats(cctx.Context)
	if err != nil {
		return fmt.Errorf("failed to collect stats: %w", err)
	}

	fmt.Printf("quota settings:   %d\n", stats.QuotaRows)
	fmt.Printf("daily counters:   %d\n", stats.CounterRows)
	fmt.Printf("audit entries:    %d\n", stats.AuditRows)
	fmt.Printf("usage counters:   %d\n", stats.UsageRows)
	if stats.OldestCounterDate != "" {
		fmt.Printf("oldest counter:   %s\n", stats.OldestCounterDate)
	}
	if !stats.OldestAuditEntry.IsZero() {
		fmt.Printf("oldest audit:     %s\n", stats.OldestAuditEntry.UTC().Format("2006-01-02 15:04:05"))
	}
	return nil
}
