package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStoreTest(t *testing.T) (*Store, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "gh")
	return store, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestCreateOrRotateRefreshKeepsRecordID(t *testing.T) {
	store, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	first, err := store.CreateOrRotateRefresh(ctx, "usr-1", "code-a", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("first issuance: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected a record id")
	}

	second, err := store.CreateOrRotateRefresh(ctx, "usr-1", "code-b", time.Now().Add(2*time.Hour))
	if err != nil {
		t.Fatalf("rotation: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("rotation must keep the record id, got %q then %q", first.ID, second.ID)
	}
	if second.Code != "code-b" {
		t.Fatalf("rotation must replace the code, got %q", second.Code)
	}

	current, err := store.MostRecentRefresh(ctx, "usr-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if current.Code != "code-b" {
		t.Fatalf("stored code must be the rotated one, got %q", current.Code)
	}
	if current.UpdatedAt.Before(first.UpdatedAt) {
		t.Fatal("rotation must advance UpdatedAt")
	}
}

func TestMostRecentRefreshNotFound(t *testing.T) {
	store, done := newStoreTest(t)
	defer done()

	_, err := store.MostRecentRefresh(context.Background(), "usr-unknown")
	if !errors.Is(err, ErrRefreshNotFound) {
		t.Fatalf("expected ErrRefreshNotFound, got %v", err)
	}
}

func TestRefreshRecordsAreIsolatedPerUser(t *testing.T) {
	store, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	a, err := store.CreateOrRotateRefresh(ctx, "usr-a", "code-a", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("issuance a: %v", err)
	}
	b, err := store.CreateOrRotateRefresh(ctx, "usr-b", "code-b", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("issuance b: %v", err)
	}
	if a.ID == b.ID {
		t.Fatal("distinct users must get distinct record ids")
	}

	got, err := store.MostRecentRefresh(ctx, "usr-a")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Code != "code-a" {
		t.Fatalf("expected code-a, got %q", got.Code)
	}
}

func TestSignupSessionConsumeOnce(t *testing.T) {
	store, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	id, err := store.CreateSignupSession(ctx, 5*time.Minute)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	sess, err := store.ConsumeSignupSession(ctx, id)
	if err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if sess.ID != id {
		t.Fatalf("expected id %q, got %q", id, sess.ID)
	}
	if !sess.ExpiresAt.After(time.Now()) {
		t.Fatal("fresh session must not be expired")
	}

	if _, err := store.ConsumeSignupSession(ctx, id); !errors.Is(err, ErrSignupSessionNotFound) {
		t.Fatalf("second consume must fail with ErrSignupSessionNotFound, got %v", err)
	}
}

func TestSignupSessionUnknownID(t *testing.T) {
	store, done := newStoreTest(t)
	defer done()

	if _, err := store.ConsumeSignupSession(context.Background(), "nope"); !errors.Is(err, ErrSignupSessionNotFound) {
		t.Fatalf("expected ErrSignupSessionNotFound, got %v", err)
	}
	if _, err := store.ConsumeSignupSession(context.Background(), ""); !errors.Is(err, ErrSignupSessionNotFound) {
		t.Fatalf("expected ErrSignupSessionNotFound for empty id, got %v", err)
	}
}

func TestSignupSessionExpiryIsReadable(t *testing.T) {
	store, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	// Logical expiry in the past; the key itself survives on the grace
	// window so the consumer can tell "expired" from "never existed".
	id, err := store.CreateSignupSession(ctx, -time.Minute)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	sess, err := store.ConsumeSignupSession(ctx, id)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if sess.ExpiresAt.After(time.Now()) {
		t.Fatal("expected a past ExpiresAt")
	}
}
