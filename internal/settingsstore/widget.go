package settingsstore

import (
	"os"
	"time"

	"quotevault/internal/entities"
)

// GetWidgetSchedule returns the snapshot re-render cron schedule
// (database > env > default)
func (s *SettingsStore) GetWidgetSchedule() string {
	setting, err := s.db.GetSetting(entities.SettingKeyWidgetSchedule)
	if err == nil && setting.Value != "" {
		return setting.Value
	}

	if envVal := os.Getenv("WIDGET_SCHEDULE"); envVal != "" {
		return envVal
	}

	// Default: every 15 minutes, the widget platform's timeline cadence
	return "*/15 * * * *"
}

// GetWidgetScheduleSource returns the source of the schedule setting
func (s *SettingsStore) GetWidgetScheduleSource() string {
	setting, err := s.db.GetSetting(entities.SettingKeyWidgetSchedule)
	if err == nil && setting.Value != "" {
		return "database"
	}
	if envVal := os.Getenv("WIDGET_SCHEDULE"); envVal != "" {
		return "environment"
	}
	return "default"
}

// SetWidgetSchedule saves the schedule to database
func (s *SettingsStore) SetWidgetSchedule(schedule string) error {
	return s.db.SetSetting(entities.SettingKeyWidgetSchedule, schedule)
}

// ClearWidgetSchedule clears the database override, reverting to env/default
func (s *SettingsStore) ClearWidgetSchedule() error {
	return s.db.DeleteSetting(entities.SettingKeyWidgetSchedule)
}

// GetWidgetLastRenderedAt returns when the snapshot was last written
func (s *SettingsStore) GetWidgetLastRenderedAt() *time.Time {
	setting, err := s.db.GetSetting(entities.SettingKeyWidgetLastRenderedAt)
	if err != nil || setting.Value == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, setting.Value)
	if err != nil {
		return nil
	}
	return &ts
}

// SetWidgetLastRenderedAt records a snapshot render
func (s *SettingsStore) SetWidgetLastRenderedAt(at time.Time) error {
	return s.db.SetSetting(entities.SettingKeyWidgetLastRenderedAt, at.UTC().Format(time.RFC3339))
}
