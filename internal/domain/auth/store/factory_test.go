package store

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"tensosense-server-go/internal/domain/auth/model"
	"tensosense-server-go/internal/platform/storage"
)

func TestFactoryMemory(t *testing.T) {
	store, err := New(Config{Driver: DriverMemory}, Dependencies{})
	if err != nil {
		t.Fatalf("New memory store: %v", err)
	}
	defer store.Close(context.Background())

	if _, ok := store.(*memoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
}

func TestFactoryDefaultsToMemory(t *testing.T) {
	store, err := New(Config{}, Dependencies{})
	if err != nil {
		t.Fatalf("New default store: %v", err)
	}
	if _, ok := store.(*memoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
}

func TestFactorySQLiteSharedHandle(t *testing.T) {
	db, err := storage.Open(storage.Options{DSN: storage.MemoryDSN})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer storage.Close(db)

	store, err := New(Config{Driver: DriverSQLite}, Dependencies{SQLiteDB: db})
	if err != nil {
		t.Fatalf("New sqlite store: %v", err)
	}
	defer store.Close(context.Background())

	if err := store.Put(context.Background(), model.User{Username: "factory-sqlite", PasswordHash: "x"}); err != nil {
		t.Fatalf("Put error: %v", err)
	}
}

func TestFactorySQLiteOwnDSN(t *testing.T) {
	store, err := New(Config{
		Driver: DriverSQLite,
		SQLite: &SQLiteConfig{DSN: storage.MemoryDSN},
	}, Dependencies{})
	if err != nil {
		t.Fatalf("New sqlite store: %v", err)
	}
	if err := store.Put(context.Background(), model.User{Username: "own", PasswordHash: "x"}); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := store.Close(context.Background()); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func TestFactorySQLiteMissingHandle(t *testing.T) {
	if _, err := New(Config{Driver: DriverSQLite}, Dependencies{}); err == nil {
		t.Fatal("expected error without handle or dsn")
	}
}

func TestFactoryRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	store, err := New(Config{
		Driver: DriverRedis,
		Redis: &RedisConfig{
			Addr: mr.Addr(),
		},
	}, Dependencies{})
	if err != nil {
		t.Fatalf("New redis store: %v", err)
	}
	defer store.Close(context.Background())

	if err := store.Put(context.Background(), model.User{Username: "factory-redis", PasswordHash: "x"}); err != nil {
		t.Fatalf("Put error: %v", err)
	}
}

func TestFactoryUnsupported(t *testing.T) {
	if _, err := New(Config{Driver: "unknown"}, Dependencies{}); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}
