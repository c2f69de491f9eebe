package birdicon

import "github.com/birdwatch/birdwatch-api/internal/pkg/apperr"

var (
	ErrSubmissionNotFound = apperr.New(apperr.KindNotFound, "icon submission not found")
	ErrNotPending         = apperr.New(apperr.KindInvalidState, "icon submission has already been reviewed")
	ErrInvalidSpecies     = apperr.Invalid("invalid bird species", map[string]string{"bird_species": "must be 1 to 100 characters"})
	ErrInvalidDecision    = apperr.New(apperr.KindInvalidArgument, "unknown decision")
	ErrInvalidStatus      = apperr.Invalid("invalid status", map[string]string{"status": "must be PENDING, APPROVED or REJECTED"})
	ErrMissingFile        = apperr.Invalid("missing icon", map[string]string{"icon": "required"})
)
