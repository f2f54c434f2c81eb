package auth

import (
	"testing"
	"time"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"))

	token, err := svc.GenerateToken("ops-cli", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.RegisteredClaims.Subject != "ops-cli" {
		t.Errorf("subject = %q, want ops-cli", claims.RegisteredClaims.Subject)
	}
	if claims.Issuer != "alertwatch" {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestTokenService_RejectsWrongSecret(t *testing.T) {
	token, err := NewTokenService([]byte("secret-a")).GenerateToken("x", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := NewTokenService([]byte("secret-b")).ValidateToken(token); err == nil {
		t.Error("token signed with another secret must be rejected")
	}
}

func TestTokenService_RejectsExpired(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"))
	token, err := svc.GenerateToken("x", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("expired token must be rejected")
	}
}

func TestTokenService_RejectsGarbage(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"))
	for _, bad := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.ValidateToken(bad); err == nil {
			t.Errorf("ValidateToken(%q) should fail", bad)
		}
	}
}
