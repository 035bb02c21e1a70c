package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tensosense-server-go/internal/platform/errors"
	"tensosense-server-go/internal/platform/storage/migrations"
)

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(Options{DSN: MemoryDSN})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestOpenAppliesMigrations(t *testing.T) {
	db := openMemory(t)

	history, err := NewMigrationManager(db).GetMigrationHistory()
	require.NoError(t, err)
	require.Len(t, history, 2)
	versions := []string{history[0].Version, history[1].Version}
	assert.ElementsMatch(t, []string{"001_users", "002_device_events"}, versions)
	assert.True(t, db.Migrator().HasTable("device_events"))

	require.NoError(t, db.Create(&UserRecord{Username: "admin", PasswordHash: "x", Role: "admin"}).Error)
	err = db.Create(&UserRecord{Username: "admin", PasswordHash: "y"}).Error
	assert.Error(t, err, "username must be unique")
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openMemory(t)

	require.NoError(t, Migrate(db))
	history, err := NewMigrationManager(db).GetMigrationHistory()
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestOpenCreatesFileUnderDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	db, err := Open(Options{Dir: dir, File: "unit.db"})
	require.NoError(t, err)
	defer Close(db)

	assert.FileExists(t, filepath.Join(dir, "unit.db"))
}

func TestRollbackMigration(t *testing.T) {
	db := openMemory(t)
	manager := NewMigrationManager(db)

	err := manager.RollbackMigration("001_users")
	assert.True(t, errors.IsKind(err, errors.KindStorage), "unregistered migrations cannot be rolled back")

	manager.AddMigration(&migrations.Migration001Users{})
	require.NoError(t, manager.RollbackMigration("001_users"))
	assert.False(t, db.Migrator().HasTable("users"))

	err = manager.RollbackMigration("001_users")
	assert.True(t, errors.IsKind(err, errors.KindStorage))
}
