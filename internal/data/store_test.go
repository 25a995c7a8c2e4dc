package data

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "moderation.db")
	store, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenIsIdempotent(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "moderation.db")

	store, err := Open(ctx, path)
	require.NoError(err)
	require.NoError(store.Close())

	// Reopening an existing file re-runs schema creation without error.
	store, err = Open(ctx, path)
	require.NoError(err)
	defer store.Close()

	for _, table := range []string{"quota_settings", "daily_counters", "audit_log", "command_usage"} {
		var name string
		err := store.db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(err, "table %s should exist", table)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

func TestOperationsAfterCloseReturnNotInitialized(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	quotas := NewQuotaRepo(store)
	require.NoError(t, store.Close())

	_, err := quotas.GetQuota(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = store.CheckIntegrity(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = store.Stats(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestCheckIntegrityHealthy(t *testing.T) {
	store := openTestStore(t)
	healthy, err := store.CheckIntegrity(context.Background())
	require.NoError(t, err)
	assert.True(t, healthy)
}

func TestCorruptionRecoveryRoundTrip(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "moderation.db")

	// A file full of garbage is not a recognizable database.
	garbage := make([]byte, 2048)
	for i := range garbage {
		garbage[i] = byte(i % 251)
	}
	require.NoError(os.WriteFile(path, garbage, 0o644))

	store, err := Open(ctx, path)
	require.NoError(err, "open should recover, not fail")
	defer store.Close()

	backups, err := filepath.Glob(path + ".corrupt-*.bak")
	require.NoError(err)
	require.Len(backups, 1, "recovery should leave one timestamped backup")

	backed, err := os.ReadFile(backups[0])
	require.NoError(err)
	assert.Equal(t, garbage, backed, "backup should preserve the corrupt bytes")

	// The recovered store works normally.
	quotas := NewQuotaRepo(store)
	require.NoError(quotas.SetQuota(ctx, "g1", 10, "mod1", "Mod One"))
	limit, err := quotas.GetQuota(ctx, "g1")
	require.NoError(err)
	assert.Equal(t, 10, limit)
}

func TestBackupPruningKeepsNewest(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "moderation.db")

	// Pre-seed old backups from previous recoveries.
	old := []string{
		path + ".corrupt-20240101T000000.bak",
		path + ".corrupt-20240102T000000.bak",
		path + ".corrupt-20240103T000000.bak",
	}
	for _, name := range old {
		require.NoError(os.WriteFile(name, []byte("old"), 0o644))
	}
	require.NoError(os.WriteFile(path, bytes.Repeat([]byte("not a sqlite file "), 64), 0o644))

	store, err := Open(ctx, path, WithBackupKeep(2))
	require.NoError(err)
	defer store.Close()

	backups, err := filepath.Glob(path + ".corrupt-*.bak")
	require.NoError(err)
	require.Len(backups, 2)

	// The fresh backup sorts after every pre-seeded one, so the survivors
	// are the newest pre-seeded file plus the fresh one.
	assert.Contains(t, backups, path+".corrupt-20240103T000000.bak")
}

func TestStats(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()
	store := openTestStore(t)

	empty, err := store.Stats(ctx)
	require.NoError(err)
	assert.Zero(empty.QuotaRows)
	assert.Empty(empty.OldestCounterDate)
	assert.True(empty.OldestAuditEntry.IsZero())

	quotas := NewQuotaRepo(store)
	counters := NewCounterRepo(store)
	audit := NewAuditRepo(store)

	require.NoError(quotas.SetQuota(ctx, "g1", 5, "m1", "Mod"))
	_, err = counters.IncrementAndGet(ctx, "g1", "u1", "2024-01-01")
	require.NoError(err)
	_, err = counters.IncrementAndGet(ctx, "g1", "u1", "2024-02-01")
	require.NoError(err)
	require.NoError(audit.Append(ctx, testEntry("g1", "quota_set")))

	stats, err := store.Stats(ctx)
	require.NoError(err)
	assert.Equal(int64(1), stats.QuotaRows)
	assert.Equal(int64(2), stats.CounterRows)
	assert.Equal(int64(1), stats.AuditRows)
	assert.Equal("2024-01-01", stats.OldestCounterDate)
	assert.WithinDuration(time.Now(), stats.OldestAuditEntry, 5*time.Second)
}
