package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/birdwatch/birdwatch-api/internal/pkg/logger"
	"github.com/birdwatch/birdwatch-api/internal/pkg/response"
)

// Counter increments a counter that expires window after its first hit.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter is a fixed window Counter backed by Redis.
type RedisCounter struct {
	redis *redis.Client
}

// NewRedisCounter creates a counter. A nil client never limits.
func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{redis: rdb}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	if c == nil || c.redis == nil {
		return 0, nil
	}
	count, err := c.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		c.redis.Expire(ctx, key, window)
	}
	return count, nil
}

// RateLimit allows limit requests per window for each caller, keyed by
// user id when authenticated and by client IP otherwise. Counter errors
// let the request through.
func RateLimit(counter Counter, scope string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if counter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := getClientIP(r)
			if userID := GetUserID(r.Context()); userID != uuid.Nil {
				caller = userID.String()
			}

			count, err := counter.Incr(r.Context(), "ratelimit:"+scope+":"+caller, window)
			if err != nil {
				logger.FromContext(r.Context()).Warn().Err(err).Str("scope", scope).Msg("Rate limit check failed")
				next.ServeHTTP(w, r)
				return
			}
			if count > int64(limit) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				response.TooManyRequests(w, "Too many requests, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
