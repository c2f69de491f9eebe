package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/domain/user"
	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
	"github.com/birdwatch/birdwatch-api/internal/pkg/jwt"
)

type fakeUsers struct {
	byID map[uuid.UUID]*user.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uuid.UUID]*user.User{}}
}

func (f *fakeUsers) Create(_ context.Context, u *user.User) error {
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return user.ErrEmailTaken
		}
		if existing.Username == u.Username {
			return user.ErrUsernameTaken
		}
	}
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	return f.byID[id], nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

type memTokens struct {
	mu      sync.Mutex
	refresh map[string]uuid.UUID
	revoked map[string]time.Duration
}

func newMemTokens() *memTokens {
	return &memTokens{refresh: map[string]uuid.UUID{}, revoked: map[string]time.Duration{}}
}

func (m *memTokens) SaveRefresh(_ context.Context, token string, userID uuid.UUID, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh[token] = userID
	return nil
}

func (m *memTokens) ConsumeRefresh(_ context.Context, token string) (uuid.UUID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.refresh[token]
	delete(m.refresh, token)
	return id, ok, nil
}

func (m *memTokens) DeleteRefresh(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refresh, token)
	return nil
}

func (m *memTokens) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = ttl
	return nil
}

func (m *memTokens) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

func newTestService() (*Service, *fakeUsers, *memTokens, *jwt.Service) {
	users := newFakeUsers()
	tokens := newMemTokens()
	jwtSvc := jwt.NewService("secret", time.Minute, time.Hour)
	return NewService(users, jwtSvc, tokens), users, tokens, jwtSvc
}

func register(t *testing.T, svc *Service, username, email string) *AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), &RegisterRequest{Username: username, Email: email, Password: "password123"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	return resp
}

func TestRegisterCreatesUserRole(t *testing.T) {
	svc, users, tokens, jwtSvc := newTestService()

	resp := register(t, svc, "robin_fan", "  Robin@Example.com ")
	if resp.User.Role != access.RoleUser || resp.User.Email != "robin@example.com" {
		t.Fatalf("unexpected user: %+v", resp.User)
	}
	if resp.Tokens.TokenType != "Bearer" || resp.Tokens.ExpiresIn != 60 {
		t.Fatalf("unexpected tokens: %+v", resp.Tokens)
	}
	stored := users.byID[resp.User.ID]
	if stored == nil || stored.PasswordHash == "password123" {
		t.Fatal("password must be stored hashed")
	}
	claims, err := jwtSvc.ValidateAccessToken(resp.Tokens.AccessToken)
	if err != nil || claims.UserID != resp.User.ID || claims.Role != string(access.RoleUser) {
		t.Fatalf("unexpected access claims: %+v %v", claims, err)
	}
	if _, ok := tokens.refresh[resp.Tokens.RefreshToken]; !ok {
		t.Fatal("refresh token must be stored")
	}
}

func TestRegisterConflicts(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	register(t, svc, "robin_fan", "robin@example.com")

	_, err := svc.Register(ctx, &RegisterRequest{Username: "other", Email: "ROBIN@example.com", Password: "password123"})
	if !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	_, err = svc.Register(ctx, &RegisterRequest{Username: "robin_fan", Email: "new@example.com", Password: "password123"})
	if !errors.Is(err, user.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	register(t, svc, "robin_fan", "robin@example.com")

	if _, err := svc.Login(ctx, &LoginRequest{Email: "robin@example.com", Password: "password123"}); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if _, err := svc.Login(ctx, &LoginRequest{Email: "robin@example.com", Password: "wrong-password"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "password123"}); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
}

func TestRefreshRotatesAndRereadsRole(t *testing.T) {
	svc, users, _, jwtSvc := newTestService()
	ctx := context.Background()
	resp := register(t, svc, "robin_fan", "robin@example.com")

	users.byID[resp.User.ID].Role = access.RoleModerator

	next, err := svc.Refresh(ctx, resp.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	claims, err := jwtSvc.ValidateAccessToken(next.Tokens.AccessToken)
	if err != nil || claims.Role != string(access.RoleModerator) {
		t.Fatalf("expected promoted role in new token, got %+v %v", claims, err)
	}

	if _, err := svc.Refresh(ctx, resp.Tokens.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("reused refresh token: expected ErrInvalidRefreshToken, got %v", err)
	}
	if _, err := svc.Refresh(ctx, next.Tokens.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("access token as refresh: expected ErrInvalidRefreshToken, got %v", err)
	}
	if _, err := svc.Refresh(ctx, ""); !errors.Is(err, ErrRefreshTokenRequired) {
		t.Fatalf("expected ErrRefreshTokenRequired, got %v", err)
	}
}

func TestLogoutRevokesTokens(t *testing.T) {
	svc, _, tokens, jwtSvc := newTestService()
	ctx := context.Background()
	resp := register(t, svc, "robin_fan", "robin@example.com")
	claims, _ := jwtSvc.ValidateAccessToken(resp.Tokens.AccessToken)

	if err := svc.Logout(ctx, claims.ID, claims.ExpiresAt.Time, resp.Tokens.RefreshToken); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if revoked, _ := tokens.IsRevoked(ctx, claims.ID); !revoked {
		t.Fatal("access token id must be revoked")
	}
	if ttl := tokens.revoked[claims.ID]; ttl <= 0 || ttl > time.Minute {
		t.Fatalf("revocation should last until expiry, got %v", ttl)
	}
	if _, err := svc.Refresh(ctx, resp.Tokens.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("refresh after logout: expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestMe(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	resp := register(t, svc, "robin_fan", "robin@example.com")

	u, err := svc.Me(ctx, &access.Actor{ID: resp.User.ID, Role: access.RoleUser})
	if err != nil || u.Username != "robin_fan" {
		t.Fatalf("Me returned %+v %v", u, err)
	}
	if _, err := svc.Me(ctx, nil); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
