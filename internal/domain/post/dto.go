package post

import (
	"time"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/photo"
	"github.com/birdwatch/birdwatch-api/internal/domain/user"
	"github.com/birdwatch/birdwatch-api/internal/pkg/geo"
)

// CreatePostRequest holds the form or JSON fields of POST /posts.
type CreatePostRequest struct {
	Species     []string `json:"species" validate:"required,min=1,max=5,dive,required,max=100"`
	Description string   `json:"description" validate:"required,min=1,max=1000"`
	Latitude    *float64 `json:"latitude" validate:"required,latitude_deg"`
	Longitude   *float64 `json:"longitude" validate:"required,longitude_deg"`
}

func (r *CreatePostRequest) Location() geo.Coordinates {
	return geo.Coordinates{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

// UpdatePostRequest is the body of PATCH /posts/{id}. Nil fields are left
// unchanged.
type UpdatePostRequest struct {
	Description *string  `json:"description" validate:"omitempty,min=1,max=1000"`
	Species     []string `json:"species" validate:"omitempty,min=1,max=5,dive,required,max=100"`
}

// ReactRequest is the body of POST /posts/{id}/reactions.
type ReactRequest struct {
	Kind ReactionKind `json:"kind" validate:"required,reaction_kind"`
}

// Response is the public view of a post.
type Response struct {
	ID          uuid.UUID        `json:"id"`
	Author      *user.Summary    `json:"author,omitempty"`
	Species     []string         `json:"species"`
	Description string           `json:"description"`
	Latitude    float64          `json:"latitude"`
	Longitude   float64          `json:"longitude"`
	Photos      []photo.Response `json:"photos"`
	Reactions   ReactionSummary  `json:"reactions"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func ResponseFrom(d *Detail, urls photo.URLer) *Response {
	resp := &Response{
		ID:          d.Post.ID,
		Species:     d.Post.Species,
		Description: d.Post.Description,
		Latitude:    d.Post.Latitude,
		Longitude:   d.Post.Longitude,
		Photos:      make([]photo.Response, 0, len(d.Photos)),
		Reactions:   ReactionSummary{ReactionCounts: d.Reactions, Mine: d.MyReaction},
		CreatedAt:   d.Post.CreatedAt,
		UpdatedAt:   d.Post.UpdatedAt,
	}
	if d.Author != nil {
		summary := user.SummaryFrom(d.Author)
		resp.Author = &summary
	}
	for _, p := range d.Photos {
		resp.Photos = append(resp.Photos, photo.ResponseFrom(p, urls))
	}
	return resp
}

func ResponsesFrom(details []*Detail, urls photo.URLer) []*Response {
	out := make([]*Response, 0, len(details))
	for _, d := range details {
		out = append(out, ResponseFrom(d, urls))
	}
	return out
}

// NearbyResponse is a post with its distance from the search center.
type NearbyResponse struct {
	*Response
	DistanceKm float64 `json:"distance_km"`
}

// MarkerResponse is a map marker.
type MarkerResponse struct {
	ID         uuid.UUID `json:"id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Species    []string  `json:"species"`
	DistanceKm float64   `json:"distance_km"`
	CreatedAt  time.Time `json:"created_at"`
}
