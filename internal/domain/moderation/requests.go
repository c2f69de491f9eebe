package moderation

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
	"github.com/birdwatch/birdwatch-api/internal/pkg/geo"
	"github.com/birdwatch/birdwatch-api/internal/pkg/pagination"
	"github.com/birdwatch/birdwatch-api/internal/pkg/realtime"
)

// SubmitInput holds the fields of a moderator application.
type SubmitInput struct {
	Location       geo.Coordinates
	LocationName   string
	Description    string
	Qualifications string
}

// Submit files a moderator application. The actor needs
// MinPostsForModerator posts and MinFriendsForModerator accepted friends,
// and may apply only once; an approved or rejected request still counts.
func (s *Service) Submit(ctx context.Context, actor *access.Actor, in SubmitInput) (*ModeratorRequest, error) {
	if err := access.Require(actor, access.ActionSubmitModeratorRequest); err != nil {
		return nil, err
	}
	if err := in.Location.Validate(); err != nil {
		return nil, err
	}

	posts, err := s.users.CountPosts(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Internal("count posts", err)
	}
	friends, err := s.friends.CountAccepted(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Internal("count friends", err)
	}
	if posts < MinPostsForModerator || friends < MinFriendsForModerator {
		return nil, ErrNotEligible
	}

	existing, err := s.repo.GetRequestByUser(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Internal("load moderator request", err)
	}
	if existing != nil {
		return nil, ErrRequestExists
	}
	if actor.IsStaff() {
		return nil, ErrAlreadyModerator
	}

	req := &ModeratorRequest{
		ID:             uuid.New(),
		UserID:         actor.ID,
		Latitude:       in.Location.Latitude,
		Longitude:      in.Location.Longitude,
		LocationName:   strings.TrimSpace(in.LocationName),
		Description:    strings.TrimSpace(in.Description),
		Qualifications: strings.TrimSpace(in.Qualifications),
		Status:         RequestPending,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.CreateRequest(ctx, req); err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			return nil, err
		}
		return nil, apperr.Internal("create moderator request", err)
	}
	return req, nil
}

// Decide approves or rejects a pending application. Approval promotes the
// applicant to MODERATOR and registers the qualifying location, in the
// same transaction as the status change.
func (s *Service) Decide(ctx context.Context, actor *access.Actor, id uuid.UUID, decision RequestDecision) (*ModeratorRequest, error) {
	if err := access.Require(actor, access.ActionReviewModeratorRequest); err != nil {
		return nil, err
	}
	var status RequestStatus
	switch decision {
	case DecisionApprove:
		status = RequestApproved
	case DecisionReject:
		status = RequestRejected
	default:
		return nil, ErrInvalidDecision
	}

	req, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, apperr.Internal("load moderator request", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.Status != RequestPending {
		return nil, ErrRequestReviewed
	}

	now := s.now().UTC()
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		updated, err := s.repo.SetRequestStatus(ctx, id, status, actor.ID, now)
		if err != nil {
			return err
		}
		if !updated {
			return ErrRequestReviewed
		}
		if status != RequestApproved {
			return nil
		}
		if err := s.users.UpdateRole(ctx, req.UserID, access.RoleModerator); err != nil {
			return err
		}
		return s.users.UpdateLocation(ctx, req.UserID, req.Location())
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInvalidState {
			return nil, err
		}
		return nil, apperr.Internal("decide moderator request", err)
	}

	req.Status = status
	req.ReviewedBy = uuid.NullUUID{UUID: actor.ID, Valid: true}
	req.ReviewedAt = sql.NullTime{Time: now, Valid: true}

	s.notifier.Notify(ctx, req.UserID, realtime.Event{
		Type: realtime.EventModeratorDecision,
		At:   now,
		Data: map[string]interface{}{"request_id": req.ID, "status": req.Status},
	})
	return req, nil
}

// ListRequests pages through applications, optionally by status. Admin only.
func (s *Service) ListRequests(ctx context.Context, actor *access.Actor, status RequestStatus, page pagination.Params) ([]*ModeratorRequest, int, error) {
	if err := access.Require(actor, access.ActionReviewModeratorRequest); err != nil {
		return nil, 0, err
	}
	if status != "" && !status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	if err := page.Validate(); err != nil {
		return nil, 0, err
	}

	reqs, total, err := s.repo.ListRequests(ctx, status, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, apperr.Internal("list moderator requests", err)
	}
	return reqs, total, nil
}

// MyRequest returns the actor's own application.
func (s *Service) MyRequest(ctx context.Context, actor *access.Actor) (*ModeratorRequest, error) {
	if err := access.Require(actor, access.ActionSubmitModeratorRequest); err != nil {
		return nil, err
	}
	req, err := s.repo.GetRequestByUser(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Internal("load moderator request", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	return req, nil
}
