package auth

import (
	"errors"
	"testing"
	"time"

	"sipproxy-client/internal/config"
)

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m, err := NewManager(config.AuthConfig{
		JWTSecret:       "secret",
		JWTIssuer:       "issuer",
		JWTAudience:     "aud",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	now := time.Unix(1700000000, 0).UTC()
	pair, err := m.IssuePair(now, "ops-1", "ws-1", "owner")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.Verify(pair.AccessToken, TokenTypeAccess, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "ops-1" || claims.WorkspaceID != "ws-1" || claims.Role != "owner" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := m.Verify(pair.AccessToken, TokenTypeAccess, now.Add(time.Hour)); err == nil {
		t.Fatalf("expected expired token rejected")
	}
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	now := time.Now()
	p, err := m.IssuePair(now, "u", "w", "r")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(p.RefreshToken, TokenTypeAccess, now); !errors.Is(err, ErrTokenType) {
		t.Fatalf("expected ErrTokenType, got %v", err)
	}
}

func TestVerifyRejectsOtherAudience(t *testing.T) {
	issuer, _ := NewManager(config.AuthConfig{JWTSecret: "secret", JWTAudience: "a", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	verifier, _ := NewManager(config.AuthConfig{JWTSecret: "secret", JWTAudience: "b", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})

	now := time.Now()
	p, _ := issuer.IssuePair(now, "u", "w", "r")
	if _, err := verifier.Verify(p.AccessToken, TokenTypeAccess, now); err == nil {
		t.Fatalf("expected audience mismatch")
	}
}
