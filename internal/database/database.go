package database

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"quotevault/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the local store for the daemon process. A store that
// cannot be opened or migrated is deleted and recreated empty; the journal
// is a cache of the remote collection, so losing it costs a re-sync, not
// data.
func NewDatabase(dbPath string) (*Database, error) {
	db, err := openStore(dbPath)
	if err != nil {
		log.Printf("Store at %s is unusable (%v), recreating it empty", dbPath, err)
		if rmErr := removeStoreFiles(dbPath); rmErr != nil {
			return nil, fmt.Errorf("failed to remove unusable store: %w", rmErr)
		}
		db, err = openStore(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to recreate store: %w", err)
		}
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return &Database{DB: db}, nil
}

// OpenReadOnly opens the store for widget and CLI processes. It never
// migrates and never recreates; a missing or corrupt store is an error the
// caller renders as an empty state.
func OpenReadOnly(dbPath string) (*Database, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("store not found at %s: %w", dbPath, err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", dbPath)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store read-only: %w", err)
	}

	return &Database{DB: db}, nil
}

func openStore(dbPath string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s?_journal=WAL&_busy_timeout=5000", dbPath)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Quote{},
		&entities.Tombstone{},
		&entities.Setting{},
		&entities.AuthSession{},
	)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func removeStoreFiles(dbPath string) error {
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) GetSetting(key string) (*entities.Setting, error) {
	var setting entities.Setting
	err := d.DB.Where("key = ?", key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (d *Database) SetSetting(key, value string) error {
	var setting entities.Setting
	result := d.DB.Where("key = ?", key).First(&setting)

	if result.Error == gorm.ErrRecordNotFound {
		setting = entities.Setting{
			Key:   key,
			Value: value,
		}
		return d.DB.Create(&setting).Error
	} else if result.Error != nil {
		return result.Error
	}

	setting.Value = value
	return d.DB.Save(&setting).Error
}

func (d *Database) DeleteSetting(key string) error {
	return d.DB.Where("key = ?", key).Delete(&entities.Setting{}).Error
}
