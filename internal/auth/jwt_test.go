package auth

import (
	"testing"
	"time"

	"voicedash/internal/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:       "secret",
		JWTIssuer:       "voicedash",
		JWTAudience:     "dashboard",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1700000000, 0).UTC()

	pair, err := m.IssuePair(now, Identity{UserID: "user-1", WorkspaceID: "ws-1", Role: "operator"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected token strings")
	}

	claims, err := m.Verify(pair.AccessToken, TokenTypeAccess, now.Add(1*time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.WorkspaceID != "ws-1" || claims.Role != "operator" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1700000000, 0).UTC()

	pair, err := m.IssuePair(now, Identity{UserID: "u", WorkspaceID: "w", Role: "viewer"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(pair.RefreshToken, TokenTypeAccess, now); err == nil {
		t.Fatalf("expected token_type mismatch")
	}
}

func TestRefreshMintsPairForSameIdentity(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1700000000, 0).UTC()

	pair, err := m.IssuePair(now, Identity{UserID: "user-1", WorkspaceID: "ws-1", Role: "operator"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Well past the access TTL, still within the refresh TTL.
	later := now.Add(2 * time.Hour)
	fresh, err := m.Refresh(later, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := m.Verify(fresh.AccessToken, TokenTypeAccess, later.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify refreshed access: %v", err)
	}
	if claims.UserID != "user-1" || claims.WorkspaceID != "ws-1" || claims.Role != "operator" {
		t.Fatalf("refreshed claims: %+v, want original identity", claims)
	}

	// An access token is not a refresh credential.
	if _, err := m.Refresh(later, pair.AccessToken); err == nil {
		t.Fatalf("expected refresh with access token to fail")
	}
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1700000000, 0).UTC()

	pair, err := m.IssuePair(now, Identity{UserID: "u", WorkspaceID: "w", Role: "viewer"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Refresh(now.Add(25*time.Hour), pair.RefreshToken); err == nil {
		t.Fatalf("expected expired refresh token to be rejected")
	}
}
