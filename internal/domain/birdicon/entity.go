package birdicon

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const MaxSpeciesLength = 100

// Status is the review state of a submission.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Decision is a reviewer's outcome.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// Submission is a user-proposed icon for a bird species.
type Submission struct {
	ID          uuid.UUID     `db:"id"`
	UserID      uuid.UUID     `db:"user_id"`
	BirdSpecies string        `db:"bird_species"`
	StorageKey  string        `db:"storage_key"`
	URL         string        `db:"url"`
	ContentType string        `db:"content_type"`
	Status      Status        `db:"status"`
	ReviewedBy  uuid.NullUUID `db:"reviewed_by"`
	ReviewedAt  sql.NullTime  `db:"reviewed_at"`
	CreatedAt   time.Time     `db:"created_at"`
}
