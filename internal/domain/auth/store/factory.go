package store

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Driver identifiers supported by the auth domain.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Dependencies captures external handles required by certain drivers.
type Dependencies struct {
	SQLiteDB *gorm.DB
}

// New creates a user store based on the provided configuration.
func New(cfg Config, deps Dependencies) (Store, error) {
	driver := strings.ToLower(cfg.Driver)
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		if deps.SQLiteDB != nil {
			return NewSQLite(deps.SQLiteDB)
		}
		return openSQLite(cfg.SQLite)
	case DriverRedis:
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("unsupported auth store driver: %s", driver)
	}
}
