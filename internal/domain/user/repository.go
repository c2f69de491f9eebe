package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/pkg/database"
	"github.com/birdwatch/birdwatch-api/internal/pkg/geo"
)

// Repository defines user data access interface
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, username string, profilePicture sql.NullString) error
	UpdateAvatar(ctx context.Context, id uuid.UUID, url, key string) error
	UpdateLocation(ctx context.Context, id uuid.UUID, loc geo.Coordinates) error
	UpdateRole(ctx context.Context, id uuid.UUID, role access.Role) error
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountPosts(ctx context.Context, id uuid.UUID) (int, error)
	ListInactive(ctx context.Context, before time.Time, limit, offset int) ([]*User, int, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new user repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const userColumns = `id, username, email, password_hash, role, profile_picture, avatar_key,
	latitude, longitude, last_active_at, created_at, updated_at`

func mapUniqueViolation(err error) error {
	switch {
	case database.IsUniqueViolation(err, "users_email_key"):
		return ErrEmailTaken
	case database.IsUniqueViolation(err, "users_username_key"):
		return ErrUsernameTaken
	}
	return err
}

// Create creates a new user
func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, role, last_active_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.LastActiveAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("user repository create: %w", err)
	}
	return nil
}

func (r *repository) get(ctx context.Context, where string, arg interface{}) (*User, error) {
	var u User
	err := database.Conn(ctx, r.db).GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetByID returns user by ID
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.get(ctx, "id = $1", id)
}

// GetByEmail returns user by email
func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.get(ctx, "email = $1", email)
}

func (r *repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error) {
	if len(ids) == 0 {
		return []*User{}, nil
	}
	var users []*User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1::uuid[])`
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &users, query, database.UUIDArray(ids)); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := database.Conn(ctx, r.db).GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id)
	return exists, err
}

func (r *repository) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) UpdateProfile(ctx context.Context, id uuid.UUID, username string, profilePicture sql.NullString) error {
	err := r.exec(ctx, `
		UPDATE users SET username = $2, profile_picture = $3, updated_at = NOW()
		WHERE id = $1
	`, id, username, profilePicture)
	return mapUniqueViolation(err)
}

func (r *repository) UpdateAvatar(ctx context.Context, id uuid.UUID, url, key string) error {
	return r.exec(ctx, `
		UPDATE users SET profile_picture = $2, avatar_key = $3, updated_at = NOW()
		WHERE id = $1
	`, id, url, key)
}

func (r *repository) UpdateLocation(ctx context.Context, id uuid.UUID, loc geo.Coordinates) error {
	return r.exec(ctx, `
		UPDATE users SET latitude = $2, longitude = $3, updated_at = NOW()
		WHERE id = $1
	`, id, loc.Latitude, loc.Longitude)
}

func (r *repository) UpdateRole(ctx context.Context, id uuid.UUID, role access.Role) error {
	return r.exec(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, role)
}

// Touch records activity. A user deleted in the meantime is not an error.
func (r *repository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE users SET last_active_at = $2 WHERE id = $1 AND last_active_at < $2`, id, at)
	return err
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (r *repository) CountPosts(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := database.Conn(ctx, r.db).GetContext(ctx, &n, `SELECT COUNT(*) FROM posts WHERE author_id = $1`, id)
	return n, err
}

// ListInactive returns users whose last activity is before the cutoff,
// least recently active first.
func (r *repository) ListInactive(ctx context.Context, before time.Time, limit, offset int) ([]*User, int, error) {
	conn := database.Conn(ctx, r.db)

	var total int
	if err := conn.GetContext(ctx, &total, `SELECT COUNT(*) FROM users WHERE last_active_at < $1`, before); err != nil {
		return nil, 0, err
	}

	users := []*User{}
	query := `SELECT ` + userColumns + ` FROM users
		WHERE last_active_at < $1
		ORDER BY last_active_at ASC, id ASC
		LIMIT $2 OFFSET $3`
	if err := conn.SelectContext(ctx, &users, query, before, limit, offset); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
