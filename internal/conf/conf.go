package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config represents application configuration
type Config struct {
	// Store configuration
	Store StoreConfig

	// Retry configuration for transient storage errors
	Retry RetryConfig

	// Maintenance schedule configuration
	Maintenance MaintenanceConfig

	// Debug mode switches logging to debug level
	Debug bool
}

// StoreConfig contains storage configuration
type StoreConfig struct {
	Path       string
	BackupKeep int // corruption backups retained after recovery
}

// RetryConfig contains retry wrapper tunables
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// MaintenanceConfig contains housekeeping schedule tunables
type MaintenanceConfig struct {
	CleanupInterval      time.Duration
	IntegrityInterval    time.Duration
	CounterRetentionDays int
	AuditRetentionDays   int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Store path
	storePath := os.Getenv("MODWATCH_DB_PATH")
	if storePath == "" {
		homeDir, _ := os.UserHomeDir()
		storePath = filepath.Join(homeDir, ".modwatch", "moderation.db")
	}

	backupKeep := 5
	if val := os.Getenv("MODWATCH_BACKUP_KEEP"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			backupKeep = parsed
		}
	}

	retryAttempts := 3
	if val := os.Getenv("MODWATCH_RETRY_ATTEMPTS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			retryAttempts = parsed
		}
	}

	retryBaseDelay := 100 * time.Millisecond
	if val := os.Getenv("MODWATCH_RETRY_BASE_DELAY_MS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			retryBaseDelay = time.Duration(parsed) * time.Millisecond
		}
	}

	cleanupInterval := 6 * time.Hour
	if val := os.Getenv("MODWATCH_CLEANUP_INTERVAL_MIN"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			cleanupInterval = time.Duration(parsed) * time.Minute
		}
	}

	integrityInterval := 6 * time.Hour
	if val := os.Getenv("MODWATCH_INTEGRITY_INTERVAL_MIN"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			integrityInterval = time.Duration(parsed) * time.Minute
		}
	}

	counterRetention := 7
	if val := os.Getenv("MODWATCH_COUNTER_RETENTION_DAYS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			counterRetention = parsed
		}
	}

	auditRetention := 30
	if val := os.Getenv("MODWATCH_AUDIT_RETENTION_DAYS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			auditRetention = parsed
		}
	}

	return &Config{
		Store: StoreConfig{
			Path:       storePath,
			BackupKeep: backupKeep,
		},
		Retry: RetryConfig{
			MaxAttempts: retryAttempts,
			BaseDelay:   retryBaseDelay,
		},
		Maintenance: MaintenanceConfig{
			CleanupInterval:      cleanupInterval,
			IntegrityInterval:    integrityInterval,
			CounterRetentionDays: counterRetention,
			AuditRetentionDays:   auditRetention,
		},
		Debug: os.Getenv("DEBUG") == "true" || os.Getenv("DEBUG") == "1",
	}
}
