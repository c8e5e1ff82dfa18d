package settingsstore

import (
	"os"
	"strconv"
	"time"

	"quotevault/internal/entities"
)

// Sync status values recorded after each reconciliation pass.
const (
	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
	SyncStatusRunning = "running"
)

// SyncConfig represents the effective configuration for remote sync
type SyncConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"`
}

// SyncConfigInfo includes source information for each field
type SyncConfigInfo struct {
	Enabled       bool   `json:"enabled"`
	EnabledSource string `json:"enabled_source"` // "database", "environment", "default"

	Schedule       string `json:"schedule"`
	ScheduleSource string `json:"schedule_source"`
}

// SyncStatus represents the last reconciliation pass
type SyncStatus struct {
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
	Status       string     `json:"status,omitempty"`  // "success", "failed", "running", ""
	Message      string     `json:"message,omitempty"` // Error message or stats summary
	QuotesPulled int        `json:"quotes_pulled,omitempty"`
}

// GetSyncEnabled returns whether periodic sync is enabled (database > env > default)
func (s *SettingsStore) GetSyncEnabled() bool {
	// Try database first
	setting, err := s.db.GetSetting(entities.SettingKeySyncEnabled)
	if err == nil && setting.Value != "" {
		return setting.Value == "true" || setting.Value == "1"
	}

	// Try environment variable
	if envVal := os.Getenv("SYNC_ENABLED"); envVal != "" {
		return envVal == "true" || envVal == "1"
	}

	// Default: enabled; mirroring the journal is the daemon's job
	return true
}

// GetSyncEnabledSource returns the source of the enabled setting
func (s *SettingsStore) GetSyncEnabledSource() string {
	setting, err := s.db.GetSetting(entities.SettingKeySyncEnabled)
	if err == nil && setting.Value != "" {
		return "database"
	}
	if envVal := os.Getenv("SYNC_ENABLED"); envVal != "" {
		return "environment"
	}
	return "default"
}

// SetSyncEnabled saves the enabled setting to database
func (s *SettingsStore) SetSyncEnabled(enabled bool) error {
	return s.db.SetSetting(entities.SettingKeySyncEnabled, strconv.FormatBool(enabled))
}

// GetSyncSchedule returns the cron schedule (database > env > default)
func (s *SettingsStore) GetSyncSchedule() string {
	// Try database first
	setting, err := s.db.GetSetting(entities.SettingKeySyncSchedule)
	if err == nil && setting.Value != "" {
		return setting.Value
	}

	// Try environment variable
	if envVal := os.Getenv("SYNC_SCHEDULE"); envVal != "" {
		return envVal
	}

	// Default: every 6 hours
	return "0 */6 * * *"
}

// GetSyncScheduleSource returns the source of the schedule setting
func (s *SettingsStore) GetSyncScheduleSource() string {
	setting, err := s.db.GetSetting(entities.SettingKeySyncSchedule)
	if err == nil && setting.Value != "" {
		return "database"
	}
	if envVal := os.Getenv("SYNC_SCHEDULE"); envVal != "" {
		return "environment"
	}
	return "default"
}

// SetSyncSchedule saves the schedule to database
func (s *SettingsStore) SetSyncSchedule(schedule string) error {
	return s.db.SetSetting(entities.SettingKeySyncSchedule, schedule)
}

// GetSyncConfig returns the effective configuration
func (s *SettingsStore) GetSyncConfig() SyncConfig {
	return SyncConfig{
		Enabled:  s.GetSyncEnabled(),
		Schedule: s.GetSyncSchedule(),
	}
}

// GetSyncConfigInfo returns the configuration with source information
func (s *SettingsStore) GetSyncConfigInfo() SyncConfigInfo {
	return SyncConfigInfo{
		Enabled:        s.GetSyncEnabled(),
		EnabledSource:  s.GetSyncEnabledSource(),
		Schedule:       s.GetSyncSchedule(),
		ScheduleSource: s.GetSyncScheduleSource(),
	}
}

// GetSyncStatus returns the last sync status
func (s *SettingsStore) GetSyncStatus() SyncStatus {
	status := SyncStatus{}

	// Get last sync timestamp
	if setting, err := s.db.GetSetting(entities.SettingKeySyncLastAt); err == nil && setting.Value != "" {
		if ts, err := time.Parse(time.RFC3339, setting.Value); err == nil {
			status.LastSyncAt = &ts
		}
	}

	// Get last status
	if setting, err := s.db.GetSetting(entities.SettingKeySyncLastStatus); err == nil {
		status.Status = setting.Value
	}

	// Get last message
	if setting, err := s.db.GetSetting(entities.SettingKeySyncLastMessage); err == nil {
		status.Message = setting.Value
	}

	// Get pulled-quote count
	if setting, err := s.db.GetSetting(entities.SettingKeySyncQuotesPulled); err == nil && setting.Value != "" {
		if count, err := strconv.Atoi(setting.Value); err == nil {
			status.QuotesPulled = count
		}
	}

	return status
}

// SetSyncStatus updates the sync status
func (s *SettingsStore) SetSyncStatus(status, message string, quotesPulled int) error {
	now := time.Now().UTC().Format(time.RFC3339)

	if err := s.db.SetSetting(entities.SettingKeySyncLastAt, now); err != nil {
		return err
	}
	if err := s.db.SetSetting(entities.SettingKeySyncLastStatus, status); err != nil {
		return err
	}
	if err := s.db.SetSetting(entities.SettingKeySyncLastMessage, message); err != nil {
		return err
	}
	return s.db.SetSetting(entities.SettingKeySyncQuotesPulled, strconv.Itoa(quotesPulled))
}

// GetSyncLastAt returns the last sync timestamp
func (s *SettingsStore) GetSyncLastAt() *time.Time {
	setting, err := s.db.GetSetting(entities.SettingKeySyncLastAt)
	if err != nil || setting.Value == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, setting.Value)
	if err != nil {
		return nil
	}
	return &ts
}

// SetOutboxError records the most recent failed remote mirror attempt so
// the status endpoint and CLI can surface it.
func (s *SettingsStore) SetOutboxError(message string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if err := s.db.SetSetting(entities.SettingKeyOutboxLastErrorAt, now); err != nil {
		return err
	}
	return s.db.SetSetting(entities.SettingKeyOutboxLastError, message)
}

// GetOutboxError returns the most recent outbox failure and when it
// happened. Empty message means no failure has been recorded.
func (s *SettingsStore) GetOutboxError() (string, *time.Time) {
	setting, err := s.db.GetSetting(entities.SettingKeyOutboxLastError)
	if err != nil || setting.Value == "" {
		return "", nil
	}
	message := setting.Value

	atSetting, err := s.db.GetSetting(entities.SettingKeyOutboxLastErrorAt)
	if err != nil || atSetting.Value == "" {
		return message, nil
	}
	at, err := time.Parse(time.RFC3339, atSetting.Value)
	if err != nil {
		return message, nil
	}
	return message, &at
}

// ClearSyncSettings clears all database overrides, reverting to env/default
func (s *SettingsStore) ClearSyncSettings() error {
	keys := []string{
		entities.SettingKeySyncEnabled,
		entities.SettingKeySyncSchedule,
	}
	for _, key := range keys {
		if err := s.db.DeleteSetting(key); err != nil {
			// Ignore not found errors
			continue
		}
	}
	return nil
}
