package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"veraz/internal/auth"
	"veraz/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "veraz.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestUsers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Lookup(ctx, "fran"); !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := repo.SaveUser(ctx, auth.User{Username: "Fran", PasswordHash: "h1", Role: core.RoleAdmin}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	u, err := repo.Lookup(ctx, "FRAN")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if u.Username != "Fran" || u.PasswordHash != "h1" || u.Role != core.RoleAdmin || u.CreatedAt.IsZero() {
		t.Fatalf("user = %+v", u)
	}

	// same name with another case updates the existing row
	if err := repo.SaveUser(ctx, auth.User{Username: "fran", PasswordHash: "h2", Role: core.RoleUser}); err != nil {
		t.Fatalf("SaveUser update: %v", err)
	}
	users, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 || users[0].PasswordHash != "h2" || users[0].Role != core.RoleUser {
		t.Fatalf("users = %+v", users)
	}

	if err := repo.SaveUser(ctx, auth.User{Username: "x", Role: "root"}); !errors.Is(err, core.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestQueryAudit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	created := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	first := core.QueryRecord{
		ID: "a1", Username: "Fran", CUIT: "30687120066", Denomination: "ACME SA",
		Periods: 24, Skipped: []string{"2024011"}, CreatedAt: created,
	}
	second := core.QueryRecord{ID: "b2", Username: "Fran", CUIT: "20111111112", CreatedAt: created.Add(time.Minute)}
	for _, rec := range []core.QueryRecord{second, first} {
		if err := repo.RecordQuery(ctx, rec); err != nil {
			t.Fatalf("RecordQuery: %v", err)
		}
	}

	got, err := repo.GetQuery(ctx, "a1")
	if err != nil {
		t.Fatalf("GetQuery: %v", err)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("created_at = %s, want %s", got.CreatedAt, first.CreatedAt)
	}
	got.CreatedAt = first.CreatedAt
	if !reflect.DeepEqual(got, first) {
		t.Fatalf("record = %+v, want %+v", got, first)
	}

	pending, err := repo.PendingQueries(ctx, 10)
	if err != nil {
		t.Fatalf("PendingQueries: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "a1" || pending[1].ID != "b2" {
		t.Fatalf("pending = %+v", pending)
	}

	if err := repo.MarkQuerySynced(ctx, "a1"); err != nil {
		t.Fatalf("MarkQuerySynced: %v", err)
	}
	if err := repo.MarkQuerySyncError(ctx, "b2"); err != nil {
		t.Fatalf("MarkQuerySyncError: %v", err)
	}
	pending, _ = repo.PendingQueries(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("pending after sync = %+v", pending)
	}

	if err := repo.MarkQuerySynced(ctx, "missing"); !errors.Is(err, ErrQueryNotFound) {
		t.Fatalf("expected ErrQueryNotFound, got %v", err)
	}
	if _, err := repo.GetQuery(ctx, "missing"); !errors.Is(err, ErrQueryNotFound) {
		t.Fatalf("expected ErrQueryNotFound, got %v", err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veraz.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	repo.Close()
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second migration run: %v", err)
	}
}
