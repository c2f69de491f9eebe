package user

import "github.com/birdwatch/birdwatch-api/internal/pkg/apperr"

var (
	ErrUserNotFound  = apperr.New(apperr.KindNotFound, "user not found")
	ErrEmailTaken    = apperr.New(apperr.KindConflict, "email already registered")
	ErrUsernameTaken = apperr.New(apperr.KindConflict, "username already taken")
)
