package migrations

import (
	"gorm.io/gorm"
)

// Migration001Users creates the account table backing the sqlite user store.
type Migration001Users struct{}

func (m *Migration001Users) Version() string {
	return "001_users"
}

func (m *Migration001Users) Description() string {
	return "Create users table"
}

func (m *Migration001Users) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(64),
			created_at DATETIME,
			updated_at DATETIME
		)
	`).Error; err != nil {
		return err
	}
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(username)`).Error
}

func (m *Migration001Users) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS users`).Error
}
