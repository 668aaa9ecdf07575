package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/config"
)

func newTestAuth(t *testing.T) (*AuthService, *config.Store) {
	t.Helper()
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	auth := NewAuthService(store, "test-secret-key-for-jwt")
	return auth, store
}

func TestTokenRoundTrip(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	token, expires, err := auth.IssueToken(ctx, &Principal{KeyID: 42, KeyPrefix: "sm_abcd1234"}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if time.Until(expires) < 59*time.Minute {
		t.Errorf("expires too early: %v", expires)
	}

	principal, err := auth.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if principal.KeyID != 42 || principal.KeyPrefix != "sm_abcd1234" {
		t.Errorf("principal = %+v", principal)
	}
}

func TestTokenExpired(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	// Negative TTL: already expired.
	token, _, err := auth.IssueToken(ctx, &Principal{KeyID: 1}, -1*time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if _, err := auth.ValidateToken(ctx, token); err != ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenInvalid(t *testing.T) {
	auth, store := newTestAuth(t)
	ctx := context.Background()

	if _, err := auth.ValidateToken(ctx, "garbage.token.here"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	// A token signed with another secret is rejected.
	other := NewAuthService(store, "a-different-secret")
	token, _, err := other.IssueToken(ctx, &Principal{KeyID: 1}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := auth.ValidateToken(ctx, token); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials for foreign token, got %v", err)
	}
}

func TestTokenWithoutSecret(t *testing.T) {
	_, store := newTestAuth(t)
	auth := NewAuthService(store, "")
	if _, _, err := auth.IssueToken(context.Background(), &Principal{KeyID: 1}, time.Hour); err == nil {
		t.Fatal("expected error when no secret is configured")
	}
}

func TestGenerateAndValidateAPIKey(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	rawKey, key, err := auth.GenerateAPIKey(ctx, "ci", nil)
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if !strings.HasPrefix(rawKey, KeyPrefix) || len(rawKey) != len(KeyPrefix)+64 {
		t.Errorf("raw key %q has unexpected shape", rawKey)
	}
	if !strings.HasPrefix(rawKey, key.KeyPrefix) {
		t.Errorf("prefix %q is not a prefix of the key", key.KeyPrefix)
	}

	principal, err := auth.ValidateAPIKey(ctx, rawKey)
	if err != nil {
		t.Fatalf("ValidateAPIKey: %v", err)
	}
	if principal.KeyID != key.ID {
		t.Errorf("KeyID: got %d, want %d", principal.KeyID, key.ID)
	}

	if _, err := auth.ValidateAPIKey(ctx, "wrong_key"); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAPIKeyRevoked(t *testing.T) {
	auth, store := newTestAuth(t)
	ctx := context.Background()

	rawKey, key, err := auth.GenerateAPIKey(ctx, "revoke-test", nil)
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if err := store.RevokeAPIKeyByPrefix(ctx, key.KeyPrefix); err != nil {
		t.Fatalf("RevokeAPIKeyByPrefix: %v", err)
	}

	if _, err := auth.ValidateAPIKey(ctx, rawKey); err != ErrKeyRevoked {
		t.Errorf("expected ErrKeyRevoked, got %v", err)
	}
}

func TestAPIKeyExpired(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	rawKey, _, err := auth.GenerateAPIKey(ctx, "expired", &past)
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if _, err := auth.ValidateAPIKey(ctx, rawKey); err != ErrTokenExpired {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}
