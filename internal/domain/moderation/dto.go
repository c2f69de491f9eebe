package moderation

import (
	"time"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/pkg/geo"
)

// FlagRequest is the body of POST /moderation/flags.
type FlagRequest struct {
	PostID uuid.UUID `json:"post_id" validate:"required"`
	Reason string    `json:"reason" validate:"required,min=1,max=500"`
}

// ReviewFlagRequest is the body of POST /moderation/flags/{id}/review.
type ReviewFlagRequest struct {
	Decision FlagDecision `json:"decision" validate:"required,decision_flag"`
}

// SubmitRequest is the body of POST /moderation/requests.
type SubmitRequest struct {
	Latitude       *float64 `json:"latitude" validate:"required,latitude_deg"`
	Longitude      *float64 `json:"longitude" validate:"required,longitude_deg"`
	LocationName   string   `json:"location_name" validate:"max=200"`
	Description    string   `json:"description" validate:"required,max=2000"`
	Qualifications string   `json:"qualifications" validate:"required,max=2000"`
}

func (r *SubmitRequest) Input() SubmitInput {
	return SubmitInput{
		Location:       geo.Coordinates{Latitude: *r.Latitude, Longitude: *r.Longitude},
		LocationName:   r.LocationName,
		Description:    r.Description,
		Qualifications: r.Qualifications,
	}
}

// DecideRequest is the body of POST /moderation/requests/{id}/decide.
type DecideRequest struct {
	Decision RequestDecision `json:"decision" validate:"required,decision_review"`
}

// FlagResponse is the view of a flag.
type FlagResponse struct {
	ID         uuid.UUID  `json:"id"`
	PostID     uuid.UUID  `json:"post_id"`
	ReporterID uuid.UUID  `json:"reporter_id"`
	Reason     string     `json:"reason"`
	Status     FlagStatus `json:"status"`
	ReviewedBy *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func FlagResponseFrom(f *Flag) *FlagResponse {
	resp := &FlagResponse{
		ID:         f.ID,
		PostID:     f.PostID,
		ReporterID: f.ReporterID,
		Reason:     f.Reason,
		Status:     f.Status,
		CreatedAt:  f.CreatedAt,
	}
	if f.ReviewedBy.Valid {
		id := f.ReviewedBy.UUID
		resp.ReviewedBy = &id
	}
	if f.ReviewedAt.Valid {
		at := f.ReviewedAt.Time
		resp.ReviewedAt = &at
	}
	return resp
}

// QueuedPost is the flagged post as shown in the review queue.
type QueuedPost struct {
	AuthorID    uuid.UUID       `json:"author_id"`
	Description string          `json:"description"`
	Species     []string        `json:"species"`
	Location    geo.Coordinates `json:"location"`
}

// QueueEntryResponse is a pending flag with its post.
type QueueEntryResponse struct {
	*FlagResponse
	Post       *QueuedPost `json:"post,omitempty"`
	DistanceKm *float64    `json:"distance_km,omitempty"`
}

func QueueResponseFrom(entries []*QueueEntry) []QueueEntryResponse {
	out := make([]QueueEntryResponse, 0, len(entries))
	for _, e := range entries {
		item := QueueEntryResponse{FlagResponse: FlagResponseFrom(&e.Flag), DistanceKm: e.DistanceKm}
		if loc := e.PostLocation(); loc != nil {
			item.Post = &QueuedPost{
				AuthorID:    e.PostAuthorID.UUID,
				Description: e.PostDescription.String,
				Species:     e.PostSpecies,
				Location:    *loc,
			}
		}
		out = append(out, item)
	}
	return out
}

// RequestResponse is the view of a moderator application.
type RequestResponse struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	Location       geo.Coordinates `json:"location"`
	LocationName   string          `json:"location_name"`
	Description    string          `json:"description"`
	Qualifications string          `json:"qualifications"`
	Status         RequestStatus   `json:"status"`
	ReviewedAt     *time.Time      `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func RequestResponseFrom(r *ModeratorRequest) *RequestResponse {
	resp := &RequestResponse{
		ID:             r.ID,
		UserID:         r.UserID,
		Location:       r.Location(),
		LocationName:   r.LocationName,
		Description:    r.Description,
		Qualifications: r.Qualifications,
		Status:         r.Status,
		CreatedAt:      r.CreatedAt,
	}
	if r.ReviewedAt.Valid {
		at := r.ReviewedAt.Time
		resp.ReviewedAt = &at
	}
	return resp
}

func RequestResponsesFrom(reqs []*ModeratorRequest) []*RequestResponse {
	out := make([]*RequestResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, RequestResponseFrom(r))
	}
	return out
}
