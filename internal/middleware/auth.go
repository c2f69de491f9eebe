package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/pkg/jwt"
	"github.com/birdwatch/birdwatch-api/internal/pkg/logger"
	"github.com/birdwatch/birdwatch-api/internal/pkg/response"
)

type contextKey string

const tokenKey contextKey = "access_token"

// TokenInfo identifies the access token used for the request.
type TokenInfo struct {
	ID        string
	ExpiresAt time.Time
}

// RevocationChecker reports whether an access token id was revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

var errMissingToken = errors.New("missing token")

func authenticate(r *http.Request, jwtService *jwt.Service, revoked RevocationChecker) (*jwt.Claims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, errMissingToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, jwt.ErrInvalidToken
	}

	claims, err := jwtService.ValidateAccessToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, err
	}

	if revoked != nil {
		isRevoked, err := revoked.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			// fail open: Redis outage should not log everyone out
			logger.FromContext(r.Context()).Warn().Err(err).Msg("Token revocation check failed")
		} else if isRevoked {
			return nil, jwt.ErrInvalidToken
		}
	}

	role := access.Role(claims.Role)
	if !role.Valid() {
		return nil, jwt.ErrInvalidToken
	}
	return claims, nil
}

func withClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	ctx = access.WithActor(ctx, &access.Actor{ID: claims.UserID, Role: access.Role(claims.Role)})
	info := TokenInfo{ID: claims.ID}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return context.WithValue(ctx, tokenKey, info)
}

// Auth returns middleware that requires a valid bearer access token.
func Auth(jwtService *jwt.Service, revoked RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(r, jwtService, revoked)
			switch {
			case errors.Is(err, errMissingToken):
				response.Unauthorized(w, "Missing authorization header")
				return
			case errors.Is(err, jwt.ErrExpiredToken):
				response.Unauthorized(w, "Token expired")
				return
			case err != nil:
				response.Unauthorized(w, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuth attaches the actor when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(jwtService *jwt.Service, revoked RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, err := authenticate(r, jwtService, revoked); err == nil {
				r = r.WithContext(withClaims(r.Context(), claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) uuid.UUID {
	if a := access.ActorFrom(ctx); a != nil {
		return a.ID
	}
	return uuid.Nil
}

// GetToken returns the access token info for the request.
func GetToken(ctx context.Context) (TokenInfo, bool) {
	info, ok := ctx.Value(tokenKey).(TokenInfo)
	return info, ok
}

// RequireRole rejects actors whose role is not listed.
func RequireRole(roles ...access.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := access.ActorFrom(r.Context())
			if actor == nil {
				response.Unauthorized(w, "Authentication required")
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Forbidden(w, "Insufficient permissions")
		})
	}
}
