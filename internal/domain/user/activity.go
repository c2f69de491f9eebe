package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const activityKeyPrefix = "active:"

// ActivityTracker refreshes last_active_at at most once per interval per
// user, using a Redis SETNX marker as the throttle.
type ActivityTracker struct {
	repo     Repository
	redis    *redis.Client
	interval time.Duration
	now      func() time.Time
}

// NewActivityTracker creates a tracker. A nil client writes on every call.
func NewActivityTracker(repo Repository, rdb *redis.Client) *ActivityTracker {
	return &ActivityTracker{repo: repo, redis: rdb, interval: time.Minute, now: time.Now}
}

// Touch records that userID was active now.
func (t *ActivityTracker) Touch(ctx context.Context, userID uuid.UUID) error {
	if t.redis != nil {
		fresh, err := t.redis.SetNX(ctx, activityKeyPrefix+userID.String(), 1, t.interval).Result()
		if err == nil && !fresh {
			return nil
		}
	}
	return t.repo.Touch(ctx, userID, t.now().UTC())
}
