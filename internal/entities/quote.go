package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList is an ordered list of strings stored as a JSON text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case string:
		if v == "" {
			*l = nil
			return nil
		}
		return json.Unmarshal([]byte(v), l)
	case []byte:
		if len(v) == 0 {
			*l = nil
			return nil
		}
		return json.Unmarshal(v, l)
	default:
		return fmt.Errorf("unsupported type %T for StringList", value)
	}
}

// Quote is a single journal record. Records are immutable after creation
// except for Timestamp (promotion to current) and the sync bookkeeping
// fields; favorites are separate records rather than flags on shared ones.
type Quote struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	UserID     string     `gorm:"index;size:36" json:"user_id"`
	Text       string     `gorm:"type:text;not null" json:"text"`
	Author     string     `gorm:"size:256" json:"author,omitempty"`
	Categories StringList `gorm:"type:text" json:"categories,omitempty"`
	IsFavorite bool       `gorm:"default:false" json:"is_favorite"`

	// Timestamp is both creation time and the recency key: display order is
	// Timestamp DESC and the record with the maximum Timestamp is the
	// "current" quote shown by the widget.
	Timestamp time.Time `gorm:"index" json:"timestamp"`

	// SyncedAt is set once this state has been confirmed on the remote
	// store (pushed or fetched). NULL marks a local-only record that the
	// reconciliation pass must not delete.
	SyncedAt *time.Time `json:"synced_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Quote) TableName() string {
	return "quotes"
}

// Tombstone records a locally deleted quote whose remote delete has not
// been confirmed yet, so a stale remote fetch cannot resurrect it.
type Tombstone struct {
	QuoteID   string    `gorm:"primaryKey;size:36" json:"quote_id"`
	UserID    string    `gorm:"index;size:36" json:"user_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

func (Tombstone) TableName() string {
	return "tombstones"
}
