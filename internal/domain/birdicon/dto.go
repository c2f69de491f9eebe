package birdicon

import (
	"time"

	"github.com/google/uuid"
)

// SubmitRequest holds the form fields of POST /bird-icons.
type SubmitRequest struct {
	BirdSpecies string `json:"bird_species" validate:"required,max=100"`
}

// ReviewRequest is the body of POST /bird-icons/{id}/review.
type ReviewRequest struct {
	Decision Decision `json:"decision" validate:"required,decision_review"`
}

// Response is the view of a submission.
type Response struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	BirdSpecies string     `json:"bird_species"`
	URL         string     `json:"url"`
	ContentType string     `json:"content_type"`
	Status      Status     `json:"status"`
	ReviewedBy  *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func ResponseFrom(s *Submission) *Response {
	resp := &Response{
		ID:          s.ID,
		UserID:      s.UserID,
		BirdSpecies: s.BirdSpecies,
		URL:         s.URL,
		ContentType: s.ContentType,
		Status:      s.Status,
		CreatedAt:   s.CreatedAt,
	}
	if s.ReviewedBy.Valid {
		resp.ReviewedBy = &s.ReviewedBy.UUID
	}
	if s.ReviewedAt.Valid {
		resp.ReviewedAt = &s.ReviewedAt.Time
	}
	return resp
}

func ResponsesFrom(subs []*Submission) []*Response {
	out := make([]*Response, len(subs))
	for i, s := range subs {
		out[i] = ResponseFrom(s)
	}
	return out
}
