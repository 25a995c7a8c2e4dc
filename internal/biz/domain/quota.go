package domain

import "time"

// QuotaSetting is the per-guild daily message quota.
// A DailyLimit of 0 means quota enforcement is disabled for the guild.
type QuotaSetting struct {
	GuildID       string
	DailyLimit    int
	UpdatedAt     time.Time
	UpdatedBy     string // empty for system-initiated changes
	UpdatedByName string
}

// DailyCounter tracks messages sent by one user in one guild on one UTC day.
type DailyCounter struct {
	GuildID       string
	UserID        string
	Date          string // DayKey form, YYYY-MM-DD in UTC
	Count         int
	LastUpdatedAt time.Time
}

// CommandUsage is a named invocation counter used for command telemetry.
type CommandUsage struct {
	CommandName string
	UsageCount  int
}

// DayKey formats t as the canonical counter date key. The day boundary is
// midnight UTC regardless of the caller's location.
func DayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// Today returns the current UTC day key.
func Today() string {
	return DayKey(time.Now())
}
