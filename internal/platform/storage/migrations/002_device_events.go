package migrations

import (
	"gorm.io/gorm"
)

// Migration002DeviceEvents creates the device lifecycle audit table.
type Migration002DeviceEvents struct{}

func (m *Migration002DeviceEvents) Version() string {
	return "002_device_events"
}

func (m *Migration002DeviceEvents) Description() string {
	return "Create device_events audit table"
}

func (m *Migration002DeviceEvents) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS device_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type VARCHAR(64) NOT NULL,
			session_id VARCHAR(255) NOT NULL,
			username VARCHAR(255),
			data TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_device_events_event_type ON device_events(event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_device_events_session_id ON device_events(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_device_events_created_at ON device_events(created_at)`,
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration002DeviceEvents) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS device_events`).Error
}
