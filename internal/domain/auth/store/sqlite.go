package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tensosense-server-go/internal/domain/auth/model"
	"tensosense-server-go/internal/platform/storage"
)

type sqliteStore struct {
	db *gorm.DB
	// owned is set when the store opened db itself and must close it.
	owned bool
}

// NewSQLite builds a SQLite-backed user store on a migrated database handle.
func NewSQLite(db *gorm.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	return &sqliteStore{db: db}, nil
}

func openSQLite(cfg *SQLiteConfig) (Store, error) {
	if cfg == nil || cfg.DSN == "" {
		return nil, fmt.Errorf("sqlite driver requires database handle or dsn")
	}
	db, err := storage.Open(storage.Options{DSN: cfg.DSN})
	if err != nil {
		return nil, err
	}
	return &sqliteStore{db: db, owned: true}, nil
}

func (s *sqliteStore) Get(ctx context.Context, username string) (model.User, error) {
	var rec storage.UserRecord
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, fmt.Errorf("%w: %s", ErrNotFound, username)
	}
	if err != nil {
		return model.User{}, err
	}
	return fromRecord(rec), nil
}

func (s *sqliteStore) Put(ctx context.Context, user model.User) error {
	if user.Username == "" {
		return fmt.Errorf("username required")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing storage.UserRecord
		err := tx.Where("username = ?", user.Username).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&storage.UserRecord{
				ID:           user.ID,
				Username:     user.Username,
				PasswordHash: user.PasswordHash,
				Role:         user.Role,
			}).Error
		case err != nil:
			return err
		}
		existing.PasswordHash = user.PasswordHash
		existing.Role = user.Role
		return tx.Save(&existing).Error
	})
}

func (s *sqliteStore) List(ctx context.Context) ([]model.User, error) {
	var records []storage.UserRecord
	if err := s.db.WithContext(ctx).Order("username").Find(&records).Error; err != nil {
		return nil, err
	}
	users := make([]model.User, 0, len(records))
	for _, rec := range records {
		users = append(users, fromRecord(rec))
	}
	return users, nil
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&storage.UserRecord{}).Count(&total).Error; err != nil {
		return nil, err
	}
	return map[string]any{
		"type":  "sqlite",
		"total": total,
	}, nil
}

func (s *sqliteStore) Close(context.Context) error {
	if !s.owned {
		return nil
	}
	return storage.Close(s.db)
}

func fromRecord(rec storage.UserRecord) model.User {
	return model.User{
		ID:           rec.ID,
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		Role:         rec.Role,
	}
}
