package data

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/modwatch/modwatch/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// DefaultBackupKeep is how many corruption backups are retained after a
// recovery, newest first.
const DefaultBackupKeep = 5

// Store owns the single SQLite file backing all four repositories. All
// statements run against one serialized connection; SQLite's own locking is
// the mutual-exclusion boundary for concurrent writers.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string

	backupKeep int
	log        *slog.Logger
}

// Option configures a Store before Open.
type Option func(*Store)

// WithBackupKeep overrides how many corruption backups are kept.
func WithBackupKeep(n int) Option {
	return func(s *Store) { s.backupKeep = n }
}

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open opens or creates the store file at path and ensures the schema.
// If the file carries a corruption signature, it is backed up and recreated
// once; a second failure is a fatal InitializationError.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:       path,
		backupKeep: DefaultBackupKeep,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := s.openAndPrepare(ctx)
	if err == nil {
		s.db = db
		return s, nil
	}
	if !IsCorruption(err) {
		return nil, err
	}

	s.log.Warn("store file is corrupted, recovering", "path", path, "error", err)
	if rerr := s.backupAndRemove(); rerr != nil {
		return nil, &InitializationError{Err: rerr}
	}
	db, err = s.openAndPrepare(ctx)
	if err != nil {
		return nil, &InitializationError{Err: err}
	}
	s.db = db
	s.pruneBackups()
	s.log.Info("store recovered from corruption", "path", path)
	return s, nil
}

// openAndPrepare opens a fresh handle, applies pragmas and ensures the
// schema. The returned handle is closed on any failure.
func (s *Store) openAndPrepare(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	// One connection: every statement serializes through SQLite's write lock.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000`,
		`PRAGMA journal_mode = WAL`,
		`PRAGMA foreign_keys = ON`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := ensureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// handle returns the live database handle, or ErrNotInitialized when the
// store was never opened or already closed.
func (s *Store) handle() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

// Path returns the store file path.
func (s *Store) Path() string { return s.path }

// CheckIntegrity runs SQLite's built-in consistency check and reports
// whether it came back healthy.
func (s *Store) CheckIntegrity(ctx context.Context) (bool, error) {
	db, err := s.handle()
	if err != nil {
		return false, err
	}
	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return false, fmt.Errorf("integrity check failed to run: %w", err)
	}
	return result == "ok", nil
}

// Stats returns aggregate row counts and oldest-record markers.
func (s *Store) Stats(ctx context.Context) (*repo.Stats, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	stats := &repo.Stats{}
	counts := []struct {
		query string
		dst   *int64
	}{
		{`SELECT COUNT(*) FROM quota_settings`, &stats.QuotaRows},
		{`SELECT COUNT(*) FROM daily_counters`, &stats.CounterRows},
		{`SELECT COUNT(*) FROM audit_log`, &stats.AuditRows},
		{`SELECT COUNT(*) FROM command_usage`, &stats.UsageRows},
	}
	for _, c := range counts {
		if err := db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("failed to collect store stats: %w", err)
		}
	}

	var oldestDate sql.NullString
	if err := db.QueryRowContext(ctx, `SELECT MIN(date) FROM daily_counters`).Scan(&oldestDate); err != nil {
		return nil, fmt.Errorf("failed to query oldest counter date: %w", err)
	}
	if oldestDate.Valid {
		stats.OldestCounterDate = oldestDate.String
	}

	var oldestTS sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MIN(timestamp) FROM audit_log`).Scan(&oldestTS); err != nil {
		return nil, fmt.Errorf("failed to query oldest audit timestamp: %w", err)
	}
	if oldestTS.Valid {
		stats.OldestAuditEntry = time.UnixMilli(oldestTS.Int64)
	}

	return stats, nil
}

// Close releases the underlying handle. Calling it again is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
