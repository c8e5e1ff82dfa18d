// Package sessionstore persists the backend auth session with AES-256-GCM
// encrypted tokens. The row lives in the main store, so recreating a
// corrupt store also signs the user out, which the daemon logs on boot.
package sessionstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"quotevault/internal/crypto"
	"quotevault/internal/entities"
)

const (
	// ProviderSupabase is the only auth backend currently wired
	ProviderSupabase = "supabase"

	// EnvEncryptionKey is the environment variable for a base64 key
	EnvEncryptionKey = "SESSION_ENCRYPTION_KEY"

	// EnvPassphrase is the environment variable for a passphrase the key
	// is derived from when no raw key is configured
	EnvPassphrase = "SESSION_PASSPHRASE"

	// DefaultKeyFileName is the default name for the generated key file
	DefaultKeyFileName = ".quotevault-key"

	// passphraseSalt must stay stable or derived keys stop matching
	// previously written ciphertext
	passphraseSalt = "quotevault-session-store-v1"
)

// Store provides encrypted persistence for the backend session
type Store struct {
	db        *gorm.DB
	encryptor *crypto.Encryptor
}

// Config holds configuration for the session store
type Config struct {
	// EncryptionKey is the base64-encoded 32-byte encryption key.
	// If empty, the environment and key file are consulted.
	EncryptionKey string

	// KeyFilePath is the path to the encryption key file.
	// If empty, defaults to ~/.quotevault-key.
	KeyFilePath string
}

// New creates a session store on top of the main database handle.
func New(db *gorm.DB, cfg Config) (*Store, error) {
	encryptor, err := resolveEncryptor(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve encryption key: %w", err)
	}

	return &Store{
		db:        db,
		encryptor: encryptor,
	}, nil
}

// resolveEncryptor builds the cipher from the first available source:
// explicit key, environment key, environment passphrase, then a key file
// that is generated on first use.
func resolveEncryptor(cfg Config) (*crypto.Encryptor, error) {
	if cfg.EncryptionKey != "" {
		return crypto.NewEncryptorFromBase64(cfg.EncryptionKey)
	}

	if envKey := os.Getenv(EnvEncryptionKey); envKey != "" {
		return crypto.NewEncryptorFromBase64(envKey)
	}

	if passphrase := os.Getenv(EnvPassphrase); passphrase != "" {
		return crypto.NewEncryptorFromPassphrase(passphrase, []byte(passphraseSalt))
	}

	keyFilePath := cfg.KeyFilePath
	if keyFilePath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		keyFilePath = filepath.Join(homeDir, DefaultKeyFileName)
	}

	if data, err := os.ReadFile(keyFilePath); err == nil {
		return crypto.NewEncryptorFromBase64(string(data))
	}

	newKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate encryption key: %w", err)
	}
	if err := os.WriteFile(keyFilePath, []byte(newKey), 0600); err != nil {
		return nil, fmt.Errorf("failed to save encryption key to %s: %w", keyFilePath, err)
	}

	fmt.Printf("🔑 Generated new encryption key and saved to %s\n", keyFilePath)
	return crypto.NewEncryptorFromBase64(newKey)
}

// Save persists a session, replacing any previous row for the account.
func (s *Store) Save(session *entities.DecryptedSession) error {
	encAccessToken, err := s.encryptor.Encrypt(session.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	encRefreshToken, err := s.encryptor.Encrypt(session.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	row := &entities.AuthSession{
		Provider:     session.Provider,
		AccountID:    session.AccountID,
		Email:        session.Email,
		AccessToken:  encAccessToken,
		RefreshToken: encRefreshToken,
		TokenType:    session.TokenType,
		ExpiresAt:    session.ExpiresAt,
	}

	result := s.db.Where("provider = ? AND account_id = ?", session.Provider, session.AccountID).
		Assign(map[string]interface{}{
			"email":         session.Email,
			"access_token":  encAccessToken,
			"refresh_token": encRefreshToken,
			"token_type":    session.TokenType,
			"expires_at":    session.ExpiresAt,
			"updated_at":    time.Now(),
		}).
		FirstOrCreate(row)

	if result.Error != nil {
		return fmt.Errorf("failed to save session: %w", result.Error)
	}
	return nil
}

// Load returns the most recently updated persisted session, or nil when
// the user is signed out.
func (s *Store) Load() (*entities.DecryptedSession, error) {
	var row entities.AuthSession
	result := s.db.Where("provider = ?", ProviderSupabase).Order("updated_at DESC").First(&row)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", result.Error)
	}

	return s.decrypt(&row)
}

// HasSession reports whether any backend session row is persisted. It
// needs no key material, so the read-only widget process can use it to
// tell "signed out" from "signed in with an empty journal".
func HasSession(db *gorm.DB) (bool, error) {
	var count int64
	err := db.Model(&entities.AuthSession{}).
		Where("provider = ?", ProviderSupabase).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count > 0, nil
}

// ActiveAccount returns the persisted session row with the tokens left
// encrypted. Account id and email are stored in the clear, so read-only
// processes can identify the signed-in user without key material.
// Returns gorm.ErrRecordNotFound when signed out.
func ActiveAccount(db *gorm.DB) (*entities.AuthSession, error) {
	var session entities.AuthSession
	err := db.Where("provider = ?", ProviderSupabase).First(&session).Error
	if err != nil {
		return nil, err
	}
	session.AccessToken = ""
	session.RefreshToken = ""
	return &session, nil
}

// UpdateAfterRefresh stores the rotated tokens after a successful refresh.
func (s *Store) UpdateAfterRefresh(accountID, newAccessToken, newRefreshToken string, expiresAt *time.Time) error {
	encAccessToken, err := s.encryptor.Encrypt(newAccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	updates := map[string]interface{}{
		"access_token":      encAccessToken,
		"expires_at":        expiresAt,
		"last_refreshed_at": time.Now(),
	}

	// Supabase rotates refresh tokens; keep the old one only when the
	// response omitted a replacement
	if newRefreshToken != "" {
		encRefreshToken, err := s.encryptor.Encrypt(newRefreshToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		updates["refresh_token"] = encRefreshToken
	}

	result := s.db.Model(&entities.AuthSession{}).
		Where("provider = ? AND account_id = ?", ProviderSupabase, accountID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update session: %w", result.Error)
	}
	return nil
}

// Delete removes the persisted session for an account.
func (s *Store) Delete(accountID string) error {
	result := s.db.Unscoped().
		Where("provider = ? AND account_id = ?", ProviderSupabase, accountID).
		Delete(&entities.AuthSession{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}
	return nil
}

func (s *Store) decrypt(row *entities.AuthSession) (*entities.DecryptedSession, error) {
	accessToken, err := s.encryptor.Decrypt(row.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}

	refreshToken, err := s.encryptor.Decrypt(row.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	return &entities.DecryptedSession{
		Provider:     row.Provider,
		AccountID:    row.AccountID,
		Email:        row.Email,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    row.TokenType,
		ExpiresAt:    row.ExpiresAt,
	}, nil
}
