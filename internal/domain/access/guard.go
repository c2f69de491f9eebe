package access

import (
	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
)

// Role is an account role (matches users.role).
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Action is an operation gated by the guard.
type Action string

const (
	// Any authenticated user
	ActionReadFeed               Action = "feed.read"
	ActionCreatePost             Action = "post.create"
	ActionReactToPost            Action = "post.react"
	ActionFlagPost               Action = "post.flag"
	ActionManageFriends          Action = "friends.manage"
	ActionSubmitModeratorRequest Action = "moderator_request.submit"
	ActionSubmitBirdIcon         Action = "bird_icon.submit"
	ActionEditProfile            Action = "profile.edit"

	// Moderator or admin
	ActionReviewFlag     Action = "flag.review"
	ActionListBirdIcons  Action = "bird_icon.list"
	ActionReviewBirdIcon Action = "bird_icon.review"

	// Admin only
	ActionReviewModeratorRequest Action = "moderator_request.review"
	ActionDeleteUser             Action = "user.delete"
	ActionViewAnalytics          Action = "analytics.view"
	ActionListInactiveUsers      Action = "users.inactive"
	ActionDeleteAnyPost          Action = "post.delete_any"
)

// rolesFor lists the roles permitted for restricted actions. Actions
// missing from the table need authentication only.
var rolesFor = map[Action][]Role{
	ActionReviewFlag:     {RoleModerator, RoleAdmin},
	ActionListBirdIcons:  {RoleModerator, RoleAdmin},
	ActionReviewBirdIcon: {RoleModerator, RoleAdmin},

	ActionReviewModeratorRequest: {RoleAdmin},
	ActionDeleteUser:             {RoleAdmin},
	ActionViewAnalytics:          {RoleAdmin},
	ActionListInactiveUsers:      {RoleAdmin},
	ActionDeleteAnyPost:          {RoleAdmin},
}

var (
	ErrUnauthenticated  = apperr.New(apperr.KindUnauthorized, "authentication required")
	ErrInsufficientRole = apperr.New(apperr.KindForbidden, "insufficient permissions")
	ErrNotOwner         = apperr.New(apperr.KindForbidden, "only the owner may modify this resource")
)

// Decision is the outcome of a guard check.
type Decision struct {
	Allowed bool
	Kind    apperr.Kind
	Reason  string
}

var allow = Decision{Allowed: true}

// Err returns nil for an allowed decision and the matching error otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Kind {
	case apperr.KindUnauthorized:
		return ErrUnauthenticated
	case apperr.KindForbidden:
		if d.Reason == ErrNotOwner.Message {
			return ErrNotOwner
		}
		return ErrInsufficientRole
	}
	return apperr.New(d.Kind, d.Reason)
}

func deny(err *apperr.Error) Decision {
	return Decision{Kind: err.Kind, Reason: err.Message}
}

// Check decides whether actor may perform action. A nil actor is always
// rejected as unauthenticated before any role check.
func Check(actor *Actor, action Action) Decision {
	if actor == nil || actor.ID == uuid.Nil {
		return deny(ErrUnauthenticated)
	}

	roles, restricted := rolesFor[action]
	if !restricted {
		return allow
	}
	for _, r := range roles {
		if actor.Role == r {
			return allow
		}
	}
	return deny(ErrInsufficientRole)
}

// CheckOwner decides whether actor may mutate a resource owned by ownerID.
// Role does not bypass ownership; moderation removal is a separate action.
func CheckOwner(actor *Actor, ownerID uuid.UUID) Decision {
	if actor == nil || actor.ID == uuid.Nil {
		return deny(ErrUnauthenticated)
	}
	if actor.ID != ownerID {
		return deny(ErrNotOwner)
	}
	return allow
}

// Require is Check(...).Err().
func Require(actor *Actor, action Action) error {
	return Check(actor, action).Err()
}

// RequireOwner is CheckOwner(...).Err().
func RequireOwner(actor *Actor, ownerID uuid.UUID) error {
	return CheckOwner(actor, ownerID).Err()
}

// IsStaff reports whether actor is a moderator or admin.
func (a *Actor) IsStaff() bool {
	return a != nil && (a.Role == RoleModerator || a.Role == RoleAdmin)
}
