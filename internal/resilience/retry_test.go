package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("database is locked")
var errPermanent = errors.New("constraint failed")

func testRetryer() *Retryer {
	r := New(func(err error) bool { return errors.Is(err, errTransient) })
	r.BaseDelay = time.Millisecond
	return r
}

func TestDoValueRetriesThenSucceeds(t *testing.T) {
	r := testRetryer()

	calls := 0
	v, err := DoValue(context.Background(), r, func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errTransient
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, calls)
}

func TestDoValueExhaustsAttempts(t *testing.T) {
	r := testRetryer()

	calls := 0
	_, err := DoValue(context.Background(), r, func(ctx context.Context) (int, error) {
		calls++
		return 0, errTransient
	})
	// The last error comes back unchanged.
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, DefaultMaxAttempts, calls)
}

func TestDoValueDoesNotRetryPermanentErrors(t *testing.T) {
	r := testRetryer()

	calls := 0
	_, err := DoValue(context.Background(), r, func(ctx context.Context) (int, error) {
		calls++
		return 0, errPermanent
	})
	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, calls)
}

func TestDoWrapsErrorlessOperations(t *testing.T) {
	r := testRetryer()

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoValueHonorsContextCancellation(t *testing.T) {
	r := testRetryer()
	r.BaseDelay = time.Minute // never actually sleeps this long

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := DoValue(ctx, r, func(ctx context.Context) (int, error) {
		calls++
		return 0, errTransient
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryerSingleAttemptMinimum(t *testing.T) {
	r := testRetryer()
	r.MaxAttempts = 0

	calls := 0
	_, err := DoValue(context.Background(), r, func(ctx context.Context) (int, error) {
		calls++
		return 0, errTransient
	})
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}
