package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/pkg/logger"
)

// ActivityTracker records that a user made an authenticated request.
type ActivityTracker interface {
	Touch(ctx context.Context, userID uuid.UUID) error
}

// TrackActivity updates the caller's last activity after the request is
// served. Must run after Auth or OptionalAuth.
func TrackActivity(tracker ActivityTracker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			userID := GetUserID(r.Context())
			if userID == uuid.Nil || tracker == nil {
				return
			}
			if err := tracker.Touch(context.WithoutCancel(r.Context()), userID); err != nil {
				logger.FromContext(r.Context()).Warn().Err(err).Str("user_id", userID.String()).Msg("Failed to record activity")
			}
		})
	}
}
