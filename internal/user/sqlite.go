package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed user repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Migrate creates the users table if it does not exist. The unique index on
// the external subject enforces one local account per provider identity at
// write time.
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id                  TEXT PRIMARY KEY,
			external_subject_id TEXT NOT NULL UNIQUE,
			display_name        TEXT NOT NULL,
			email               TEXT NOT NULL,
			created_at          TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("migrating users table: %w", err)
	}
	return nil
}

// Create inserts a new user. The ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, u *User) error {
	if u.ExternalSubjectID == "" {
		return errors.New("user requires an external subject id")
	}
	if u.ID == "" {
		u.ID = "usr-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC()
	u.CreatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, external_subject_id, display_name, email, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.ExternalSubjectID, u.DisplayName, u.Email, now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSubjectExists
		}
		return fmt.Errorf("creating user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their unique ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getUser(ctx,
		"SELECT id, external_subject_id, display_name, email, created_at FROM users WHERE id = ?", id)
}

// GetBySubject retrieves a user by their external provider subject id.
func (r *SQLiteRepository) GetBySubject(ctx context.Context, subject string) (*User, error) {
	return r.getUser(ctx,
		"SELECT id, external_subject_id, display_name, email, created_at FROM users WHERE external_subject_id = ?", subject)
}

func (r *SQLiteRepository) getUser(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	var createdAt string

	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.ExternalSubjectID, &u.DisplayName, &u.Email, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}

	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	return &u, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
