package user

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func newRepositoryTest(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewSQLiteRepository(db)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func TestCreateAndLookup(t *testing.T) {
	repo := newRepositoryTest(t)
	ctx := context.Background()

	u := &User{
		ExternalSubjectID: "google-sub-123",
		DisplayName:       "Ada",
		Email:             "ada@example.com",
	}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected a generated id")
	}

	byID, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.ExternalSubjectID != "google-sub-123" {
		t.Fatalf("unexpected subject %q", byID.ExternalSubjectID)
	}

	bySubject, err := repo.GetBySubject(ctx, "google-sub-123")
	if err != nil {
		t.Fatalf("get by subject: %v", err)
	}
	if bySubject.ID != u.ID {
		t.Fatalf("expected id %q, got %q", u.ID, bySubject.ID)
	}
}

func TestLookupNotFound(t *testing.T) {
	repo := newRepositoryTest(t)
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "usr-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetBySubject(ctx, "sub-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDuplicateSubjectRejected(t *testing.T) {
	repo := newRepositoryTest(t)
	ctx := context.Background()

	if err := repo.Create(ctx, &User{ExternalSubjectID: "sub-1", DisplayName: "A", Email: "a@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := repo.Create(ctx, &User{ExternalSubjectID: "sub-1", DisplayName: "B", Email: "b@example.com"})
	if !errors.Is(err, ErrSubjectExists) {
		t.Fatalf("expected ErrSubjectExists, got %v", err)
	}
}
