package auth

import (
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("super-secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	if err := CheckPassword(hash, "super-secret"); err != nil {
		t.Fatalf("expected password to match, got %v", err)
	}

	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	claims := Claims{UserID: "u1", Email: "a@example.com", DisplayName: "Ada", Role: RoleAdmin, SessionID: "s1"}

	token, err := GenerateToken(secret, claims, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	user := parsed.UserContext()
	if user.UserID != "u1" || user.Email != "a@example.com" || user.Role != RoleAdmin || user.SessionID != "s1" {
		t.Fatalf("claims mismatch: %+v", user)
	}
	if !user.IsAdmin() {
		t.Fatal("expected admin user context")
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("one", Claims{UserID: "u1"}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("two", token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken("secret", Claims{UserID: "u1"}, -time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret", token); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestHashTokenStable(t *testing.T) {
	if HashToken("abc") != HashToken("abc") {
		t.Fatal("expected deterministic hash")
	}
	if HashToken("abc") == HashToken("abd") {
		t.Fatal("expected distinct hashes")
	}
}
