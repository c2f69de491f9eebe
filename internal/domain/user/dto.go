package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/pkg/geo"
)

// UpdateProfileRequest is the body of PATCH /users/{id}. Nil fields are
// left unchanged.
type UpdateProfileRequest struct {
	Username       *string `json:"username" validate:"omitempty,username"`
	ProfilePicture *string `json:"profile_picture" validate:"omitempty,url,max=2048"`
}

// UpdateLocationRequest is the body of PUT /users/me/location.
type UpdateLocationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude_deg"`
	Longitude *float64 `json:"longitude" validate:"required,longitude_deg"`
}

func (r *UpdateLocationRequest) Coordinates() geo.Coordinates {
	return geo.Coordinates{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

// Profile is a user with public counters.
type Profile struct {
	User        *User
	PostCount   int
	FriendCount int
}

// ProfileResponse is the public view of a user.
type ProfileResponse struct {
	ID             uuid.UUID        `json:"id"`
	Username       string           `json:"username"`
	ProfilePicture *string          `json:"profile_picture,omitempty"`
	Role           access.Role      `json:"role"`
	PostCount      int              `json:"post_count"`
	FriendCount    int              `json:"friend_count"`
	Location       *geo.Coordinates `json:"location,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// UserResponse is the account view returned to its owner and admins.
type UserResponse struct {
	ID             uuid.UUID        `json:"id"`
	Username       string           `json:"username"`
	Email          string           `json:"email"`
	Role           access.Role      `json:"role"`
	ProfilePicture *string          `json:"profile_picture,omitempty"`
	Location       *geo.Coordinates `json:"location,omitempty"`
	LastActiveAt   time.Time        `json:"last_active_at"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Summary is the compact author view embedded in other resources.
type Summary struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	ProfilePicture *string   `json:"profile_picture,omitempty"`
}

func picture(u *User) *string {
	if !u.ProfilePicture.Valid {
		return nil
	}
	s := u.ProfilePicture.String
	return &s
}

// ProfileResponseFrom converts a profile to its response. The location is
// only included for moderators, whose area is public.
func ProfileResponseFrom(p *Profile) *ProfileResponse {
	resp := &ProfileResponse{
		ID:             p.User.ID,
		Username:       p.User.Username,
		ProfilePicture: picture(p.User),
		Role:           p.User.Role,
		PostCount:      p.PostCount,
		FriendCount:    p.FriendCount,
		CreatedAt:      p.User.CreatedAt,
	}
	if p.User.Role == access.RoleModerator {
		resp.Location = p.User.Location()
	}
	return resp
}

func UserResponseFrom(u *User) *UserResponse {
	return &UserResponse{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Role:           u.Role,
		ProfilePicture: picture(u),
		Location:       u.Location(),
		LastActiveAt:   u.LastActiveAt,
		CreatedAt:      u.CreatedAt,
	}
}

func SummaryFrom(u *User) Summary {
	return Summary{ID: u.ID, Username: u.Username, ProfilePicture: picture(u)}
}
