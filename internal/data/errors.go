package data

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotInitialized is returned by every repository operation invoked before
// Open has completed successfully.
var ErrNotInitialized = errors.New("store not initialized")

// CorruptionError marks the store file as unreadable or malformed. It
// triggers the backup-and-recreate recovery path.
type CorruptionError struct {
	Path string
	Err  error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("store file %s is corrupted: %v", e.Path, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }

// InitializationError is fatal: recovery was attempted and the store still
// cannot be opened. The process cannot run without its persistence layer.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("store initialization failed after recovery: %v", e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

func sqliteCode(err error) (int, bool) {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		// Extended result codes carry the primary code in the low byte.
		return serr.Code() & 0xff, true
	}
	return 0, false
}

// IsCorruption reports whether err carries a corruption signature: the file
// is not a recognizable database or its disk image is malformed.
func IsCorruption(err error) bool {
	if err == nil {
		return false
	}
	var cerr *CorruptionError
	if errors.As(err, &cerr) {
		return true
	}
	if code, ok := sqliteCode(err); ok {
		switch code {
		case sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_NOTADB:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "file is not a database") ||
		strings.Contains(msg, "database disk image is malformed") ||
		strings.Contains(msg, "file is encrypted or is not a database")
}

// IsRetryable reports whether err is a transient storage failure worth
// retrying: lock contention or busy states from a concurrent writer.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok {
		switch code {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_PROTOCOL:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "locking protocol")
}
