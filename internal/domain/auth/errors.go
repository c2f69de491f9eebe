package auth

import "github.com/birdwatch/birdwatch-api/internal/pkg/apperr"

var (
	ErrInvalidCredentials   = apperr.New(apperr.KindUnauthorized, "invalid email or password")
	ErrInvalidRefreshToken  = apperr.New(apperr.KindUnauthorized, "invalid or expired refresh token")
	ErrRefreshTokenRequired = apperr.Invalid("refresh token is required", map[string]string{"refresh_token": "required"})
)
