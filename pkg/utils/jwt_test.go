package utils

import (
	"testing"

	"github.com/google/uuid"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	userID := uuid.New()
	hotelID := uuid.New()

	token, err := GenerateJWT(userID, "admin@hotel.test", "admin", &hotelID, "test-secret", 1)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := ValidateToken(token, "test-secret")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.UserID != userID || claims.Role != "admin" {
		t.Errorf("claims mismatch: %+v", claims)
	}
	if claims.HotelID == nil || *claims.HotelID != hotelID {
		t.Error("hotel scope lost in the round trip")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateJWT(uuid.New(), "a@b.test", "admin", nil, "secret-one", 1)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, err := ValidateToken(token, "secret-two"); err == nil {
		t.Error("token signed with a different secret must be rejected")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	if _, err := ValidateToken("not-a-jwt", "secret"); err == nil {
		t.Error("malformed token must be rejected")
	}
}

func TestGenerateOpaqueToken(t *testing.T) {
	a, err := GenerateOpaqueToken(32)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	b, err := GenerateOpaqueToken(32)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if a == b {
		t.Error("two tokens must not collide")
	}
}
