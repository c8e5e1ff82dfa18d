package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// Remote sync status
	SettingKeySyncEnabled      = "sync_enabled"
	SettingKeySyncLastAt       = "sync_last_at"
	SettingKeySyncLastStatus   = "sync_last_status"
	SettingKeySyncLastMessage  = "sync_last_message"
	SettingKeySyncQuotesPulled = "sync_quotes_pulled"
	SettingKeySyncSchedule     = "sync_schedule"

	// Outbox failure surfacing
	SettingKeyOutboxLastError   = "outbox_last_error"
	SettingKeyOutboxLastErrorAt = "outbox_last_error_at"

	// Widget snapshot
	SettingKeyWidgetSchedule       = "widget_schedule"
	SettingKeyWidgetLastRenderedAt = "widget_last_rendered_at"
)
