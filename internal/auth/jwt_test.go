package auth_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/scanpay/api/internal/auth"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"
	userID := uuid.New()

	token, err := auth.GenerateToken(secret, userID, "asha", "CUSTOMER")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("user ID: got %v, want %v", claims.UserID, userID)
	}
	if claims.Username != "asha" {
		t.Errorf("username: got %q, want %q", claims.Username, "asha")
	}
	if claims.Role != "CUSTOMER" {
		t.Errorf("role: got %v, want CUSTOMER", claims.Role)
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("secret-a", uuid.New(), "asha", "CUSTOMER")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := auth.ValidateToken("secret-b", token); err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	if _, err := auth.ValidateToken("secret", "not-a-jwt"); err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	userID := uuid.New()
	token, err := auth.GenerateRefreshToken("secret", userID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	got, err := auth.ValidateRefreshToken("secret", token)
	if err != nil {
		t.Fatalf("validate refresh token: %v", err)
	}
	if got != userID {
		t.Errorf("subject: got %v, want %v", got, userID)
	}

	if _, err := auth.ValidateRefreshToken("other", token); err == nil {
		t.Fatal("expected error validating refresh token with wrong secret")
	}
}

func TestValidateTokenRejectsRefreshToken(t *testing.T) {
	token, err := auth.GenerateRefreshToken("secret", uuid.New())
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}
	if _, err := auth.ValidateToken("secret", token); err == nil {
		t.Fatal("refresh token accepted as an access token")
	}
}

func TestValidateRefreshTokenRejectsAccessToken(t *testing.T) {
	token, err := auth.GenerateToken("secret", uuid.New(), "asha", "CUSTOMER")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := auth.ValidateRefreshToken("secret", token); err == nil {
		t.Fatal("access token accepted as a refresh token")
	}
}

func TestValidateTokenRejectsEmptyUsername(t *testing.T) {
	token, err := auth.GenerateToken("secret", uuid.New(), "", "CUSTOMER")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := auth.ValidateToken("secret", token); err == nil {
		t.Fatal("token without a username accepted")
	}
}
