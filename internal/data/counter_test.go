package data

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modwatch/modwatch/internal/biz/domain"
)

func TestGetCountDefaultsToZero(t *testing.T) {
	store := openTestStore(t)
	counters := NewCounterRepo(store)

	count, err := counters.GetCount(context.Background(), "g1", "u1", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestIncrementAndGetReturnsNewValue(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	store := openTestStore(t)
	counters := NewCounterRepo(store)

	for want := 1; want <= 5; want++ {
		got, err := counters.IncrementAndGet(ctx, "g1", "u1", "2024-01-01")
		require.NoError(err)
		require.Equal(want, got)
	}

	count, err := counters.GetCount(ctx, "g1", "u1", "2024-01-01")
	require.NoError(err)
	require.Equal(5, count)
}

func TestConcurrentIncrementsLoseNoUpdates(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	store := openTestStore(t)
	counters := NewCounterRepo(store)

	const n = 10
	results := make([]int, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = counters.IncrementAndGet(ctx, "g1", "u1", "2024-01-01")
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(err)
	}

	count, err := counters.GetCount(ctx, "g1", "u1", "2024-01-01")
	require.NoError(err)
	require.Equal(n, count)

	// Each call saw a distinct value; together they are exactly 1..n.
	sort.Ints(results)
	for i, v := range results {
		require.Equal(i+1, v)
	}
}

func TestResetCountIsAResetNotADelete(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	store := openTestStore(t)
	counters := NewCounterRepo(store)

	_, err := counters.IncrementAndGet(ctx, "g1", "u1", "2024-01-01")
	require.NoError(err)
	v, err := counters.IncrementAndGet(ctx, "g1", "u1", "2024-01-01")
	require.NoError(err)
	require.Equal(2, v)

	require.NoError(counters.ResetCount(ctx, "g1", "u1", "2024-01-01"))

	count, err := counters.GetCount(ctx, "g1", "u1", "2024-01-01")
	require.NoError(err)
	require.Equal(0, count)

	// The next increment restarts from the reset row.
	v, err = counters.IncrementAndGet(ctx, "g1", "u1", "2024-01-01")
	require.NoError(err)
	require.Equal(1, v)
}

func TestResetCountCreatesMissingRow(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	counters := NewCounterRepo(store)

	require.NoError(t, counters.ResetCount(ctx, "g1", "u1", "2024-01-01"))
	count, err := counters.GetCount(ctx, "g1", "u1", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCounterKeysAreIsolated(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()
	store := openTestStore(t)
	counters := NewCounterRepo(store)

	_, err := counters.IncrementAndGet(ctx, "g1", "u1", "2024-01-01")
	require.NoError(err)

	// Different day, different user, different guild: all unaffected.
	for _, key := range [][3]string{
		{"g1", "u1", "2024-01-02"},
		{"g1", "u2", "2024-01-01"},
		{"g2", "u1", "2024-01-01"},
	} {
		count, err := counters.GetCount(ctx, key[0], key[1], key[2])
		require.NoError(err)
		assert.Equal(0, count, "key %v should be isolated", key)
	}
}

func TestCleanupOlderThanUsesDateOnly(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	store := openTestStore(t)
	counters := NewCounterRepo(store)

	today := domain.Today()
	old := domain.DayKey(time.Now().AddDate(0, 0, -40))

	_, err := counters.IncrementAndGet(ctx, "g1", "u1", today)
	require.NoError(err)
	_, err = counters.IncrementAndGet(ctx, "g1", "u1", old)
	require.NoError(err)

	deleted, err := counters.CleanupOlderThan(ctx, 30)
	require.NoError(err)
	require.Equal(int64(1), deleted)

	count, err := counters.GetCount(ctx, "g1", "u1", today)
	require.NoError(err)
	require.Equal(1, count, "today's row must survive")

	count, err = counters.GetCount(ctx, "g1", "u1", old)
	require.NoError(err)
	require.Equal(0, count)
}
