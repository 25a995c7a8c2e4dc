package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementUsage(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	store := openTestStore(t)
	usage := NewUsageRepo(store)

	count, err := usage.GetUsage(ctx, "setquota")
	require.NoError(err)
	require.Equal(0, count)

	for want := 1; want <= 3; want++ {
		got, err := usage.IncrementUsage(ctx, "setquota")
		require.NoError(err)
		require.Equal(want, got)
	}

	// Counters are independent per command name.
	got, err := usage.IncrementUsage(ctx, "free")
	require.NoError(err)
	assert.Equal(t, 1, got)

	count, err = usage.GetUsage(ctx, "setquota")
	require.NoError(err)
	assert.Equal(t, 3, count)
}
