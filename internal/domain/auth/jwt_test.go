package auth

import (
	"testing"
	"time"
)

func TestValidateToken(t *testing.T) {
	svc := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "stocktrail"})

	tok, err := svc.GenerateToken("u1", "worker@example.com", "worker", false, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	user, err := svc.ValidateToken(tok)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if user.UserID != "u1" {
		t.Errorf("user id = %q, want u1", user.UserID)
	}
	if user.Email != "worker@example.com" {
		t.Errorf("email = %q", user.Email)
	}
	if user.IsAdmin {
		t.Error("is admin must be false")
	}
}

func TestValidateToken_Rejections(t *testing.T) {
	svc := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "stocktrail"})

	expired, err := svc.GenerateToken("u1", "a@example.com", "a", false, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	otherSecret := NewJWTService(JWTConfig{Secret: "other-secret", Issuer: "stocktrail"})
	forged, err := otherSecret.GenerateToken("u1", "a@example.com", "a", true, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	otherIssuer := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "someone-else"})
	wrongIssuer, err := otherIssuer.GenerateToken("u1", "a@example.com", "a", false, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong secret", forged},
		{"wrong issuer", wrongIssuer},
		{"garbage", "not.a.token"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.ValidateToken(tt.token); err == nil {
				t.Error("token must be rejected")
			}
		})
	}
}
