// Package session persists the server-side state of the authentication core:
// one rotating refresh record per user and short-lived, one-time signup
// sessions. All state lives in Redis; the store itself holds no mutable
// in-process state and is safe for concurrent use.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrRefreshNotFound is returned when a user has no refresh record.
	ErrRefreshNotFound = errors.New("refresh record not found")
	// ErrSignupSessionNotFound is returned when a signup session does not
	// exist or has already been consumed.
	ErrSignupSessionNotFound = errors.New("signup session not found")
)

// signupGrace keeps an expired signup session readable for a short window so
// a consumer can distinguish "expired" from "never existed".
const signupGrace = time.Hour

// RefreshRecord is the currently valid refresh token for a user. The record
// id is minted once and survives rotation; the CSRF token is bound to it.
type RefreshRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SignupSession gates a signup callback. It is consumed exactly once.
type SignupSession struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store is a Redis-backed session store.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewStore returns a Store using client with the given key prefix.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "gh"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *Store) refreshKey(userID string) string {
	return fmt.Sprintf("%s:refresh:%s", s.prefix, userID)
}

func (s *Store) signupKey(id string) string {
	return fmt.Sprintf("%s:signup:%s", s.prefix, id)
}

// CreateOrRotateRefresh inserts a refresh record for userID if none exists,
// or updates the existing record in place. The key is the user id, so at
// most one record per user can ever exist; the record id is stable across
// rotations. Returns the resulting record.
func (s *Store) CreateOrRotateRefresh(ctx context.Context, userID, code string, expiresAt time.Time) (*RefreshRecord, error) {
	if userID == "" {
		return nil, errors.New("refresh record requires a user id")
	}

	record := &RefreshRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Code:      code,
		ExpiresAt: expiresAt,
		UpdatedAt: s.now(),
	}

	existing, err := s.MostRecentRefresh(ctx, userID)
	switch {
	case err == nil:
		record.ID = existing.ID
	case errors.Is(err, ErrRefreshNotFound):
		// first issuance for this user
	default:
		return nil, err
	}

	blob, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encoding refresh record: %w", err)
	}
	if err := s.redis.Set(ctx, s.refreshKey(userID), blob, 0).Err(); err != nil {
		return nil, fmt.Errorf("writing refresh record: %w", err)
	}

	return record, nil
}

// MostRecentRefresh returns the refresh record for userID, or
// ErrRefreshNotFound if none exists.
func (s *Store) MostRecentRefresh(ctx context.Context, userID string) (*RefreshRecord, error) {
	blob, err := s.redis.Get(ctx, s.refreshKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRefreshNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading refresh record: %w", err)
	}

	var record RefreshRecord
	if err := json.Unmarshal(blob, &record); err != nil {
		return nil, fmt.Errorf("decoding refresh record: %w", err)
	}
	return &record, nil
}

// CreateSignupSession inserts a signup session expiring ttl from now and
// returns its id. The Redis key outlives the logical expiry by a grace
// window so consumers can report expiry instead of absence.
func (s *Store) CreateSignupSession(ctx context.Context, ttl time.Duration) (string, error) {
	sess := SignupSession{
		ID:        uuid.NewString(),
		ExpiresAt: s.now().Add(ttl),
	}

	blob, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("encoding signup session: %w", err)
	}
	if err := s.redis.Set(ctx, s.signupKey(sess.ID), blob, ttl+signupGrace).Err(); err != nil {
		return "", fmt.Errorf("writing signup session: %w", err)
	}

	return sess.ID, nil
}

// ConsumeSignupSession atomically fetches and deletes the signup session for
// id. A second call with the same id returns ErrSignupSessionNotFound even
// inside the validity window. Expiry is the caller's check: the returned
// session may carry a past ExpiresAt.
func (s *Store) ConsumeSignupSession(ctx context.Context, id string) (*SignupSession, error) {
	if id == "" {
		return nil, ErrSignupSessionNotFound
	}

	blob, err := s.redis.GetDel(ctx, s.signupKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSignupSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consuming signup session: %w", err)
	}

	var sess SignupSession
	if err := json.Unmarshal(blob, &sess); err != nil {
		return nil, fmt.Errorf("decoding signup session: %w", err)
	}
	return &sess, nil
}
