package friendship

import (
	"time"

	"github.com/google/uuid"
)

// Status of a friendship row.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusDeclined Status = "DECLINED"
)

// Decision is the recipient's answer to a pending request.
type Decision string

const (
	DecisionAccept  Decision = "ACCEPT"
	DecisionDecline Decision = "DECLINE"
)

// Status returns the state a decision moves a request to.
func (d Decision) Status() (Status, bool) {
	switch d {
	case DecisionAccept:
		return StatusAccepted, true
	case DecisionDecline:
		return StatusDeclined, true
	}
	return "", false
}

// Friendship is directed while PENDING and symmetric once ACCEPTED.
type Friendship struct {
	ID          uuid.UUID `db:"id"`
	RequesterID uuid.UUID `db:"requester_id"`
	RecipientID uuid.UUID `db:"recipient_id"`
	Status      Status    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Involves reports whether userID is either party.
func (f *Friendship) Involves(userID uuid.UUID) bool {
	return f.RequesterID == userID || f.RecipientID == userID
}

// OtherParty returns the party that is not userID.
func (f *Friendship) OtherParty(userID uuid.UUID) uuid.UUID {
	if f.RequesterID == userID {
		return f.RecipientID
	}
	return f.RequesterID
}
