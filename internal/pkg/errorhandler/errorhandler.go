package errorhandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
	"github.com/birdwatch/birdwatch-api/internal/pkg/logger"
	"github.com/birdwatch/birdwatch-api/internal/pkg/response"
)

// Handle writes the HTTP response for a service error. Classified errors
// map to their status; anything else is logged and reported as a 500
// without leaking the cause.
func Handle(ctx context.Context, w http.ResponseWriter, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		logger.FromContext(ctx).Error().Err(err).Msg("Unhandled error")
		response.InternalError(w)
		return
	}

	switch ae.Kind {
	case apperr.KindUnauthorized:
		response.Unauthorized(w, ae.Message)
	case apperr.KindForbidden:
		response.Forbidden(w, ae.Message)
	case apperr.KindNotFound:
		response.NotFound(w, ae.Message)
	case apperr.KindInvalidArgument:
		if len(ae.Fields) > 0 {
			response.ErrorWithDetails(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", ae.Message, ae.Fields)
			return
		}
		response.BadRequest(w, ae.Message)
	case apperr.KindConflict:
		response.Conflict(w, ae.Message)
	case apperr.KindInvalidState:
		response.InvalidState(w, ae.Message)
	default:
		logger.FromContext(ctx).Error().
			Err(err).
			Str("error_kind", ae.Kind.String()).
			Msg("Internal error")
		response.InternalError(w)
	}
}

// StatusOf returns the HTTP status Handle would use for err.
func StatusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidArgument:
		var ae *apperr.Error
		if errors.As(err, &ae) && len(ae.Fields) > 0 {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadRequest
	case apperr.KindConflict, apperr.KindInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
