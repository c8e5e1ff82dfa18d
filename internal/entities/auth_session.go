package entities

import (
	"time"

	"gorm.io/gorm"
)

// AuthSession stores the persisted backend session (one row per provider
// and account). Token columns hold base64-encoded AES-256-GCM ciphertext;
// the plaintext only ever lives in a DecryptedSession.
type AuthSession struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Provider identifies the auth backend (currently always "supabase")
	Provider string `gorm:"type:varchar(50);not null;uniqueIndex:idx_provider_account" json:"provider"`

	// AccountID is the backend user UUID
	AccountID string `gorm:"type:varchar(255);not null;uniqueIndex:idx_provider_account" json:"account_id"`

	Email string `gorm:"type:varchar(255)" json:"email"`

	// AccessToken is the encrypted access token
	AccessToken string `gorm:"type:text;not null" json:"-"`

	// RefreshToken is the encrypted refresh token
	RefreshToken string `gorm:"type:text" json:"-"`

	TokenType string `gorm:"type:varchar(50);default:Bearer" json:"token_type"`

	// ExpiresAt is when the access token expires
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	LastRefreshedAt *time.Time `json:"last_refreshed_at,omitempty"`
}

func (AuthSession) TableName() string {
	return "auth_sessions"
}

// IsExpired reports whether the access token has expired, treating
// anything with less than 5 minutes remaining as already expired.
func (s *AuthSession) IsExpired() bool {
	if s.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(5 * time.Minute).After(*s.ExpiresAt)
}

// DecryptedSession holds the plaintext session for in-memory use.
// It is never stored directly in the database.
type DecryptedSession struct {
	Provider     string
	AccountID    string
	Email        string
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    *time.Time
}
