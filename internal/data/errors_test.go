package data

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	assert := assert.New(t)

	assert.False(IsRetryable(nil))
	assert.True(IsRetryable(errors.New("database is locked")))
	assert.True(IsRetryable(errors.New("database table is locked")))
	assert.True(IsRetryable(fmt.Errorf("failed to increment: %w", errors.New("database is locked (5) (SQLITE_BUSY)"))))
	assert.False(IsRetryable(errors.New("UNIQUE constraint failed")))
	assert.False(IsRetryable(ErrNotInitialized))
}

func TestIsCorruption(t *testing.T) {
	assert := assert.New(t)

	assert.False(IsCorruption(nil))
	assert.True(IsCorruption(errors.New("file is not a database")))
	assert.True(IsCorruption(errors.New("database disk image is malformed")))
	assert.True(IsCorruption(&CorruptionError{Path: "x.db", Err: errors.New("bad header")}))
	assert.False(IsCorruption(errors.New("database is locked")))
}

func TestErrorTypesUnwrap(t *testing.T) {
	cause := errors.New("bad header")
	cerr := &CorruptionError{Path: "x.db", Err: cause}
	assert.ErrorIs(t, cerr, cause)

	ierr := &InitializationError{Err: cerr}
	assert.ErrorIs(t, ierr, cause)
	var target *CorruptionError
	assert.ErrorAs(t, ierr, &target)
}
