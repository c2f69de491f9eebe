package friendship

import (
	"time"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/user"
)

// SendRequestRequest is the body of POST /friends/requests.
type SendRequestRequest struct {
	RecipientID uuid.UUID `json:"recipient_id" validate:"required"`
}

// RespondRequest is the body of POST /friends/requests/{id}/respond.
type RespondRequest struct {
	Decision Decision `json:"decision" validate:"required,decision_friend"`
}

// Response is a single friendship row.
type Response struct {
	ID          uuid.UUID `json:"id"`
	RequesterID uuid.UUID `json:"requester_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ResponseFrom(f *Friendship) *Response {
	return &Response{
		ID:          f.ID,
		RequesterID: f.RequesterID,
		RecipientID: f.RecipientID,
		Status:      f.Status,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// EntryResponse is a friendship seen from one of its parties.
type EntryResponse struct {
	FriendshipID uuid.UUID     `json:"friendship_id"`
	User         *user.Summary `json:"user,omitempty"`
	Status       Status        `json:"status"`
	Since        time.Time     `json:"since"`
}

// OverviewResponse is returned by GET /friends.
type OverviewResponse struct {
	Friends  []EntryResponse `json:"friends"`
	Incoming []EntryResponse `json:"incoming"`
	Outgoing []EntryResponse `json:"outgoing"`
}

func entries(rows []*Friendship, self uuid.UUID, users map[uuid.UUID]*user.User) []EntryResponse {
	out := make([]EntryResponse, 0, len(rows))
	for _, f := range rows {
		e := EntryResponse{FriendshipID: f.ID, Status: f.Status, Since: f.UpdatedAt}
		if u, ok := users[f.OtherParty(self)]; ok {
			summary := user.SummaryFrom(u)
			e.User = &summary
		}
		out = append(out, e)
	}
	return out
}

func OverviewResponseFrom(o *Overview, self uuid.UUID) *OverviewResponse {
	return &OverviewResponse{
		Friends:  entries(o.Friends, self, o.Users),
		Incoming: entries(o.Incoming, self, o.Users),
		Outgoing: entries(o.Outgoing, self, o.Users),
	}
}
