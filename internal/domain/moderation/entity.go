package moderation

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/birdwatch/birdwatch-api/internal/pkg/geo"
)

const (
	MinPostsForModerator   = 10
	MinFriendsForModerator = 5
	MaxReasonLength        = 500
)

// FlagStatus is the state of a flagged post.
type FlagStatus string

const (
	FlagPending   FlagStatus = "PENDING"
	FlagResolved  FlagStatus = "RESOLVED"
	FlagDismissed FlagStatus = "DISMISSED"
)

// FlagDecision is a reviewer's outcome for a flag.
type FlagDecision string

const (
	DecisionResolve FlagDecision = "RESOLVE"
	DecisionDismiss FlagDecision = "DISMISS"
)

// Flag is a user's report against a post. PostID is kept after the post
// is deleted.
type Flag struct {
	ID         uuid.UUID     `db:"id"`
	PostID     uuid.UUID     `db:"post_id"`
	ReporterID uuid.UUID     `db:"reporter_id"`
	Reason     string        `db:"reason"`
	Status     FlagStatus    `db:"status"`
	ReviewedBy uuid.NullUUID `db:"reviewed_by"`
	ReviewedAt sql.NullTime  `db:"reviewed_at"`
	CreatedAt  time.Time     `db:"created_at"`
}

// QueueEntry is a pending flag joined with its post.
type QueueEntry struct {
	Flag
	PostAuthorID    uuid.NullUUID   `db:"post_author_id"`
	PostDescription sql.NullString  `db:"post_description"`
	PostSpecies     pq.StringArray  `db:"post_species"`
	PostLatitude    sql.NullFloat64 `db:"post_latitude"`
	PostLongitude   sql.NullFloat64 `db:"post_longitude"`

	// DistanceKm is set for radius-scoped queues.
	DistanceKm *float64 `db:"-"`
}

// PostLocation returns nil when the post is gone.
func (e *QueueEntry) PostLocation() *geo.Coordinates {
	if !e.PostLatitude.Valid || !e.PostLongitude.Valid {
		return nil
	}
	return &geo.Coordinates{Latitude: e.PostLatitude.Float64, Longitude: e.PostLongitude.Float64}
}

// RequestStatus is the state of a moderator application.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

func (s RequestStatus) Valid() bool {
	return s == RequestPending || s == RequestApproved || s == RequestRejected
}

// RequestDecision is an admin's outcome for a moderator application.
type RequestDecision string

const (
	DecisionApprove RequestDecision = "APPROVE"
	DecisionReject  RequestDecision = "REJECT"
)

// ModeratorRequest is a user's application to become a moderator for the
// area around a qualifying location.
type ModeratorRequest struct {
	ID             uuid.UUID     `db:"id"`
	UserID         uuid.UUID     `db:"user_id"`
	Latitude       float64       `db:"latitude"`
	Longitude      float64       `db:"longitude"`
	LocationName   string        `db:"location_name"`
	Description    string        `db:"description"`
	Qualifications string        `db:"qualifications"`
	Status         RequestStatus `db:"status"`
	ReviewedBy     uuid.NullUUID `db:"reviewed_by"`
	ReviewedAt     sql.NullTime  `db:"reviewed_at"`
	CreatedAt      time.Time     `db:"created_at"`
}

func (r *ModeratorRequest) Location() geo.Coordinates {
	return geo.Coordinates{Latitude: r.Latitude, Longitude: r.Longitude}
}
