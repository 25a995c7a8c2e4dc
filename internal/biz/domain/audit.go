package domain

import "time"

// ActionType tags an audit log entry. The string values are stable and stored
// as-is; renaming one breaks historical logs.
type ActionType string

const (
	ActionQuotaSet             ActionType = "quota_set"
	ActionTimeout              ActionType = "timeout"
	ActionFree                 ActionType = "free"
	ActionAutoTimeout          ActionType = "auto_timeout"
	ActionQuotaReset           ActionType = "quota_reset"
	ActionWatchlistRoleCreated ActionType = "watchlist_role_created"
	ActionWatchlistAdd         ActionType = "watchlist_add"
	ActionWatchlistRemove      ActionType = "watchlist_remove"
	ActionTimeoutFailed        ActionType = "timeout_failed"
	ActionMessageTrackingError ActionType = "message_tracking_error"
	ActionIntegrityCheckError  ActionType = "integrity_check_error"
)

// AuditEntry is one immutable row in the moderation audit log.
// Moderator fields are empty for automatic actions, target fields are empty
// for guild-level actions. Details holds an action-specific payload and is
// nil when the action carries none.
type AuditEntry struct {
	ID             int64
	GuildID        string
	Action         ActionType
	ModeratorID    string
	ModeratorName  string
	TargetUserID   string
	TargetUserName string
	Details        map[string]any
	Timestamp      time.Time
}
