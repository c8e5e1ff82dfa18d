package database

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"quotevault/internal/entities"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "store.db")
	db, err := NewDatabase(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestNewDatabase(t *testing.T) {
	t.Run("creates store file and migrates", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "store.db")

		db, err := NewDatabase(dbPath)
		require.NoError(t, err)
		defer db.Close()

		_, err = os.Stat(dbPath)
		assert.NoError(t, err)

		// All journal tables exist after migration.
		quote := &entities.Quote{ID: "q1", UserID: "u1", Text: "hello", Timestamp: time.Now()}
		assert.NoError(t, db.DB.Create(quote).Error)
		assert.NoError(t, db.DB.Create(&entities.Tombstone{QuoteID: "q2", UserID: "u1", DeletedAt: time.Now()}).Error)
		assert.NoError(t, db.SetSetting("k", "v"))
	})

	t.Run("reopening preserves data", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "store.db")

		db1, err := NewDatabase(dbPath)
		require.NoError(t, err)
		require.NoError(t, db1.DB.Create(&entities.Quote{ID: "q1", UserID: "u1", Text: "kept", Timestamp: time.Now()}).Error)
		require.NoError(t, db1.Close())

		db2, err := NewDatabase(dbPath)
		require.NoError(t, err)
		defer db2.Close()

		var count int64
		require.NoError(t, db2.DB.Model(&entities.Quote{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("recreates an unusable store empty", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "store.db")
		require.NoError(t, os.WriteFile(dbPath, []byte("this is not a sqlite database"), 0600))

		db, err := NewDatabase(dbPath)
		require.NoError(t, err)
		defer db.Close()

		// The garbage file was replaced by a working empty store.
		var count int64
		require.NoError(t, db.DB.Model(&entities.Quote{}).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})
}

func TestOpenReadOnly(t *testing.T) {
	t.Run("fails when the store does not exist", func(t *testing.T) {
		_, err := OpenReadOnly(filepath.Join(t.TempDir(), "missing.db"))
		assert.Error(t, err)
	})

	t.Run("reads daemon-written data", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "store.db")

		rw, err := NewDatabase(dbPath)
		require.NoError(t, err)
		require.NoError(t, rw.DB.Create(&entities.Quote{ID: "q1", UserID: "u1", Text: "visible", Timestamp: time.Now()}).Error)
		require.NoError(t, rw.Close())

		ro, err := OpenReadOnly(dbPath)
		require.NoError(t, err)
		defer ro.Close()

		var quote entities.Quote
		require.NoError(t, ro.DB.Where("id = ?", "q1").First(&quote).Error)
		assert.Equal(t, "visible", quote.Text)
	})

	t.Run("rejects writes", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "store.db")

		rw, err := NewDatabase(dbPath)
		require.NoError(t, err)
		require.NoError(t, rw.Close())

		ro, err := OpenReadOnly(dbPath)
		require.NoError(t, err)
		defer ro.Close()

		err = ro.DB.Create(&entities.Quote{ID: "q1", UserID: "u1", Text: "nope", Timestamp: time.Now()}).Error
		assert.Error(t, err)
	})
}

func TestSettingOperations(t *testing.T) {
	db := setupTestDB(t)

	t.Run("SetSetting creates new setting", func(t *testing.T) {
		require.NoError(t, db.SetSetting("test_key", "test_value"))

		setting, err := db.GetSetting("test_key")
		require.NoError(t, err)
		assert.Equal(t, "test_key", setting.Key)
		assert.Equal(t, "test_value", setting.Value)
	})

	t.Run("SetSetting updates existing setting", func(t *testing.T) {
		require.NoError(t, db.SetSetting("update_key", "initial_value"))
		require.NoError(t, db.SetSetting("update_key", "updated_value"))

		setting, err := db.GetSetting("update_key")
		require.NoError(t, err)
		assert.Equal(t, "updated_value", setting.Value)
	})

	t.Run("GetSetting returns error for nonexistent key", func(t *testing.T) {
		_, err := db.GetSetting("nonexistent_key")
		assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	})

	t.Run("DeleteSetting removes setting", func(t *testing.T) {
		require.NoError(t, db.SetSetting("delete_key", "to_delete"))
		require.NoError(t, db.DeleteSetting("delete_key"))

		_, err := db.GetSetting("delete_key")
		assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	})

	t.Run("DeleteSetting does not error for nonexistent key", func(t *testing.T) {
		assert.NoError(t, db.DeleteSetting("never_existed"))
	})
}

func TestDatabaseClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "store.db")

	db, err := NewDatabase(dbPath)
	require.NoError(t, err)

	assert.NoError(t, db.Close())
}
