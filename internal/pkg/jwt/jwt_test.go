package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewService("secret", time.Minute, time.Hour)
	userID := uuid.New()

	issued, err := svc.GenerateAccessToken(userID, "MODERATOR")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := svc.ValidateAccessToken(issued.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != userID || claims.Role != "MODERATOR" || claims.ID != issued.ID {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRefreshTokenIsNotAccessToken(t *testing.T) {
	svc := NewService("secret", time.Minute, time.Hour)

	refresh, err := svc.GenerateRefreshToken(uuid.New())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.ValidateAccessToken(refresh.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
	if _, err := svc.ValidateRefreshToken(refresh.Token); err != nil {
		t.Fatalf("refresh should validate: %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	svc := NewService("secret", time.Minute, time.Hour)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	issued, err := svc.GenerateAccessToken(uuid.New(), "USER")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.ValidateAccessToken(issued.Token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestWrongSecret(t *testing.T) {
	issued, _ := NewService("a", time.Minute, time.Hour).GenerateAccessToken(uuid.New(), "USER")
	if _, err := NewService("b", time.Minute, time.Hour).ValidateAccessToken(issued.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}
