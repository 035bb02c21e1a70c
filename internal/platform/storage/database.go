package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tensosense-server-go/internal/platform/errors"
	"tensosense-server-go/internal/platform/storage/migrations"
)

// MemoryDSN opens a private in-memory database, used by tests.
const MemoryDSN = "file::memory:"

// Options selects where the SQLite database lives.
type Options struct {
	// DSN wins over Dir/File when set.
	DSN  string
	Dir  string
	File string
}

// UserRecord is the persisted form of an account.
type UserRecord struct {
	ID           int64  `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName pins the table created by migration 001.
func (UserRecord) TableName() string {
	return "users"
}

// DeviceEventRecord is one row of the device lifecycle audit trail.
type DeviceEventRecord struct {
	ID        uint   `gorm:"primaryKey"`
	EventType string `gorm:"index;not null"`
	SessionID string `gorm:"index;not null"`
	Username  string
	// Data holds the JSON-encoded event payload.
	Data      string
	CreatedAt time.Time `gorm:"index;not null"`
}

func (DeviceEventRecord) TableName() string {
	return "device_events"
}

// Open opens the SQLite database and applies pending migrations.
func Open(opts Options) (*gorm.DB, error) {
	dsn, err := resolveDSN(opts)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open", "failed to open database", err)
	}

	if dsn == MemoryDSN {
		// every pooled connection would otherwise see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(errors.KindStorage, "storage.open", "failed to access sql handle", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate registers the known migrations and applies the pending ones.
func Migrate(db *gorm.DB) error {
	manager := NewMigrationManager(db)
	manager.AddMigration(&migrations.Migration001Users{})
	manager.AddMigration(&migrations.Migration002DeviceEvents{})
	return manager.RunMigrations()
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func resolveDSN(opts Options) (string, error) {
	if opts.DSN != "" {
		return opts.DSN, nil
	}
	dir := opts.Dir
	if dir == "" {
		dir = "./data"
	}
	file := opts.File
	if file == "" {
		file = "tensosense.db"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(errors.KindStorage, "storage.open", fmt.Sprintf("failed to create data directory %s", dir), err)
	}
	return filepath.Join(dir, file), nil
}
