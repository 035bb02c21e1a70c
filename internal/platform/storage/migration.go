package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	perrors "tensosense-server-go/internal/platform/errors"
)

// Migration is one versioned schema change.
type Migration interface {
	Version() string
	Description() string
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

// MigrationRecord marks a migration as applied.
type MigrationRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Version   string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// MigrationManager applies migrations in registration order.
type MigrationManager struct {
	db         *gorm.DB
	migrations []Migration
}

// NewMigrationManager creates a manager bound to db.
func NewMigrationManager(db *gorm.DB) *MigrationManager {
	return &MigrationManager{
		db:         db,
		migrations: []Migration{},
	}
}

// AddMigration registers a migration.
func (m *MigrationManager) AddMigration(migration Migration) {
	m.migrations = append(m.migrations, migration)
}

// RunMigrations applies every registered migration not yet recorded, each in its own transaction.
func (m *MigrationManager) RunMigrations() error {
	if err := m.db.AutoMigrate(&MigrationRecord{}); err != nil {
		return perrors.Wrap(perrors.KindStorage, "migration.create_table", "failed to create migration table", err)
	}

	var appliedVersions []string
	if err := m.db.Model(&MigrationRecord{}).Pluck("version", &appliedVersions).Error; err != nil {
		return perrors.Wrap(perrors.KindStorage, "migration.get_applied", "failed to get applied migrations", err)
	}

	appliedMap := make(map[string]bool)
	for _, version := range appliedVersions {
		appliedMap[version] = true
	}

	for _, migration := range m.migrations {
		if appliedMap[migration.Version()] {
			continue
		}

		tx := m.db.Begin()
		if tx.Error != nil {
			return perrors.Wrap(perrors.KindStorage, "migration.begin_tx", "failed to begin transaction", tx.Error)
		}

		if err := migration.Up(tx); err != nil {
			tx.Rollback()
			return perrors.Wrap(perrors.KindStorage, "migration.up", fmt.Sprintf("failed to run migration %s", migration.Version()), err)
		}

		record := &MigrationRecord{
			Version:   migration.Version(),
			Name:      migration.Description(),
			AppliedAt: time.Now(),
		}
		if err := tx.Create(record).Error; err != nil {
			tx.Rollback()
			return perrors.Wrap(perrors.KindStorage, "migration.record", "failed to record migration", err)
		}

		if err := tx.Commit().Error; err != nil {
			return perrors.Wrap(perrors.KindStorage, "migration.commit", "failed to commit migration", err)
		}
	}

	return nil
}

// RollbackMigration reverts an applied migration and removes its record.
func (m *MigrationManager) RollbackMigration(version string) error {
	var record MigrationRecord
	if err := m.db.Where("version = ?", version).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return perrors.New(perrors.KindStorage, "migration.not_found", fmt.Sprintf("migration %s not found", version))
		}
		return perrors.Wrap(perrors.KindStorage, "migration.find_record", "failed to find migration record", err)
	}

	var targetMigration Migration
	for _, migration := range m.migrations {
		if migration.Version() == version {
			targetMigration = migration
			break
		}
	}

	if targetMigration == nil {
		return perrors.New(perrors.KindStorage, "migration.not_registered", fmt.Sprintf("migration %s not registered", version))
	}

	tx := m.db.Begin()
	if tx.Error != nil {
		return perrors.Wrap(perrors.KindStorage, "migration.rollback_begin_tx", "failed to begin rollback transaction", tx.Error)
	}

	if err := targetMigration.Down(tx); err != nil {
		tx.Rollback()
		return perrors.Wrap(perrors.KindStorage, "migration.down", fmt.Sprintf("failed to rollback migration %s", version), err)
	}

	if err := tx.Delete(&record).Error; err != nil {
		tx.Rollback()
		return perrors.Wrap(perrors.KindStorage, "migration.delete_record", "failed to delete migration record", err)
	}

	if err := tx.Commit().Error; err != nil {
		return perrors.Wrap(perrors.KindStorage, "migration.rollback_commit", "failed to commit rollback", err)
	}

	return nil
}

// GetMigrationHistory lists applied migrations, newest first.
func (m *MigrationManager) GetMigrationHistory() ([]MigrationRecord, error) {
	var records []MigrationRecord
	if err := m.db.Order("applied_at DESC").Find(&records).Error; err != nil {
		return nil, perrors.Wrap(perrors.KindStorage, "migration.history", "failed to get migration history", err)
	}
	return records, nil
}
