package store

import (
	"context"
	"errors"
	"testing"

	"tensosense-server-go/internal/domain/auth/model"
)

// exerciseStore runs the behaviour every driver must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "admin"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	admin := model.User{ID: 1, Username: "admin", PasswordHash: "hash-a", Role: "admin"}
	viewer := model.User{ID: 2, Username: "viewer", PasswordHash: "hash-v", Role: "user"}
	for _, u := range []model.User{viewer, admin} {
		if err := s.Put(ctx, u); err != nil {
			t.Fatalf("Put(%s) error: %v", u.Username, err)
		}
	}

	got, err := s.Get(ctx, "admin")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != admin {
		t.Fatalf("Get = %+v, want %+v", got, admin)
	}

	if _, err := s.Get(ctx, "Admin"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("lookups must be case-sensitive, got %v", err)
	}

	admin.PasswordHash = "hash-b"
	if err := s.Put(ctx, admin); err != nil {
		t.Fatalf("Put replace error: %v", err)
	}
	got, err = s.Get(ctx, "admin")
	if err != nil {
		t.Fatalf("Get after replace error: %v", err)
	}
	if got.PasswordHash != "hash-b" {
		t.Fatalf("expected replaced hash, got %+v", got)
	}

	users, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(users) != 2 || users[0].Username != "admin" || users[1].Username != "viewer" {
		t.Fatalf("unexpected list: %+v", users)
	}

	if err := s.Put(ctx, model.User{}); err == nil {
		t.Fatal("expected error for empty username")
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats["type"] == nil {
		t.Fatalf("stats missing type: %v", stats)
	}
}
