package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	refreshKeyPrefix = "refresh:"
	revokedKeyPrefix = "bl:jti:"
)

// TokenStore keeps refresh tokens and revoked access token ids.
type TokenStore interface {
	SaveRefresh(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	// ConsumeRefresh removes the token and returns its owner. ok is false
	// when the token is unknown or was already used.
	ConsumeRefresh(ctx context.Context, token string) (userID uuid.UUID, ok bool, err error)
	DeleteRefresh(ctx context.Context, token string) error
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisTokenStore implements TokenStore. Only a hash of each refresh
// token is stored. A nil client stores nothing, so refresh always fails
// and nothing is ever revoked.
type RedisTokenStore struct {
	redis *redis.Client
}

// NewRedisTokenStore creates a token store on rdb
func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{redis: rdb}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *RedisTokenStore) SaveRefresh(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Set(ctx, refreshKeyPrefix+hashToken(token), userID.String(), ttl).Err()
}

func (s *RedisTokenStore) ConsumeRefresh(ctx context.Context, token string) (uuid.UUID, bool, error) {
	if s.redis == nil {
		return uuid.Nil, false, nil
	}
	val, err := s.redis.GetDel(ctx, refreshKeyPrefix+hashToken(token)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false, nil
	}
	return id, true, nil
}

func (s *RedisTokenStore) DeleteRefresh(ctx context.Context, token string) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Del(ctx, refreshKeyPrefix+hashToken(token)).Err()
}

func (s *RedisTokenStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if s.redis == nil || ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, revokedKeyPrefix+jti, 1, ttl).Err()
}

// IsRevoked implements middleware.RevocationChecker.
func (s *RedisTokenStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if s.redis == nil {
		return false, nil
	}
	n, err := s.redis.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
