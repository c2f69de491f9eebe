package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/pkg/geo"
)

// User represents a user account (matches users table)
type User struct {
	ID             uuid.UUID       `db:"id"`
	Username       string          `db:"username"`
	Email          string          `db:"email"`
	PasswordHash   string          `db:"password_hash"`
	Role           access.Role     `db:"role"`
	ProfilePicture sql.NullString  `db:"profile_picture"`
	AvatarKey      sql.NullString  `db:"avatar_key"`
	Latitude       sql.NullFloat64 `db:"latitude"`
	Longitude      sql.NullFloat64 `db:"longitude"`
	LastActiveAt   time.Time       `db:"last_active_at"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// Location returns the registered location, or nil when unset.
func (u *User) Location() *geo.Coordinates {
	if !u.Latitude.Valid || !u.Longitude.Valid {
		return nil
	}
	return &geo.Coordinates{Latitude: u.Latitude.Float64, Longitude: u.Longitude.Float64}
}

// Actor returns the user as an authenticated actor.
func (u *User) Actor() *access.Actor {
	return &access.Actor{ID: u.ID, Role: u.Role}
}

func (u *User) IsAdmin() bool {
	return u.Role == access.RoleAdmin
}
