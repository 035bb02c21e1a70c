package store

import (
	"context"
	"errors"

	"tensosense-server-go/internal/domain/auth/model"
)

// ErrNotFound is returned by Get when no account has the username.
var ErrNotFound = errors.New("user not found")

// Store looks up accounts by exact, case-sensitive username.
type Store interface {
	Get(ctx context.Context, username string) (model.User, error)
	// Put inserts or replaces the account keyed by username.
	Put(ctx context.Context, user model.User) error
	List(ctx context.Context) ([]model.User, error)
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// Config describes the high level store selection parameters.
type Config struct {
	Driver string
	Redis  *RedisConfig
	SQLite *SQLiteConfig
}

// SQLiteConfig is used when no shared database handle is supplied.
type SQLiteConfig struct {
	DSN string
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
