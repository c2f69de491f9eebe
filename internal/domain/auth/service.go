package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/domain/user"
	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
	"github.com/birdwatch/birdwatch-api/internal/pkg/jwt"
	"github.com/birdwatch/birdwatch-api/internal/pkg/logger"
	"github.com/birdwatch/birdwatch-api/internal/pkg/password"
)

// UserStore is the subset of user.Repository auth needs.
type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// Service handles authentication business logic
type Service struct {
	users      UserStore
	jwtService *jwt.Service
	tokens     TokenStore
	now        func() time.Time
}

// NewService creates auth service
func NewService(users UserStore, jwtService *jwt.Service, tokens TokenStore) *Service {
	return &Service{users: users, jwtService: jwtService, tokens: tokens, now: time.Now}
}

// Register creates a USER account and signs it in.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	now := s.now().UTC()
	u := &user.User{
		ID:           uuid.New(),
		Username:     normalizeUsername(req.Username),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		Role:         access.RoleUser,
		LastActiveAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			return nil, err
		}
		return nil, apperr.Internal("create user", err)
	}

	logger.LogInfo(ctx, "User registered", "user_id", u.ID.String())
	return s.issue(ctx, u)
}

// Login authenticates by email and password.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	if u == nil || !password.Verify(req.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, u)
}

// Refresh exchanges a refresh token for a new token pair. The old refresh
// token is consumed, and the role is re-read so a promotion applies.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if refreshToken == "" {
		return nil, ErrRefreshTokenRequired
	}
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	userID, ok, err := s.tokens.ConsumeRefresh(ctx, refreshToken)
	if err != nil {
		return nil, apperr.Internal("consume refresh token", err)
	}
	if !ok || userID != claims.UserID {
		return nil, ErrInvalidRefreshToken
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	if u == nil {
		return nil, ErrInvalidRefreshToken
	}
	return s.issue(ctx, u)
}

// Logout revokes the refresh token, if given, and blacklists the access
// token until it would have expired.
func (s *Service) Logout(ctx context.Context, accessJTI string, accessExpiry time.Time, refreshToken string) error {
	if refreshToken != "" {
		if err := s.tokens.DeleteRefresh(ctx, refreshToken); err != nil {
			return apperr.Internal("delete refresh token", err)
		}
	}
	if accessJTI == "" {
		return nil
	}
	if err := s.tokens.Revoke(ctx, accessJTI, accessExpiry.Sub(s.now())); err != nil {
		return apperr.Internal("revoke access token", err)
	}
	return nil
}

// Me returns the actor's own account.
func (s *Service) Me(ctx context.Context, actor *access.Actor) (*user.User, error) {
	if err := access.Require(actor, access.ActionEditProfile); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	if u == nil {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (s *Service) issue(ctx context.Context, u *user.User) (*AuthResponse, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(u.ID, string(u.Role))
	if err != nil {
		return nil, apperr.Internal("sign access token", err)
	}
	refreshToken, err := s.jwtService.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, apperr.Internal("sign refresh token", err)
	}
	if err := s.tokens.SaveRefresh(ctx, refreshToken.Token, u.ID, s.jwtService.RefreshTTL()); err != nil {
		return nil, apperr.Internal("store refresh token", err)
	}

	return &AuthResponse{
		User: user.UserResponseFrom(u),
		Tokens: TokensResponse{
			AccessToken:  accessToken.Token,
			RefreshToken: refreshToken.Token,
			ExpiresIn:    int(s.jwtService.AccessTTL().Seconds()),
			TokenType:    "Bearer",
		},
	}, nil
}
