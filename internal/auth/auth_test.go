package auth

import (
	"errors"
	"testing"
	"time"

	"peerview/internal/config"
)

func newTestService() *Service {
	return NewService(&config.JWTConfig{
		Expiration:        time.Hour,
		RefreshExpiration: 168 * time.Hour,
	})
}

func TestHashPassword(t *testing.T) {
	svc := newTestService()

	password := "testpassword123"
	hash, err := svc.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	if hash == "" {
		t.Error("Hash should not be empty")
	}
	if hash == password {
		t.Error("Hash should not equal the original password")
	}
}

func TestVerifyPassword(t *testing.T) {
	svc := newTestService()

	password := "testpassword123"
	hash, err := svc.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	if err := svc.VerifyPassword(hash, password); err != nil {
		t.Errorf("Should verify correct password, got error: %v", err)
	}

	if err := svc.VerifyPassword(hash, "wrongpassword"); err == nil {
		t.Error("Should not verify incorrect password")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService()

	userID := uint(7)
	email := "coordinator@peerview.aero"

	token, jti, err := svc.GenerateToken(userID, email)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if token == "" {
		t.Fatal("Token should not be empty")
	}
	if jti == "" {
		t.Fatal("JTI should not be empty")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("Expected user ID %d, got %d", userID, claims.UserID)
	}
	if claims.Email != email {
		t.Errorf("Expected email %s, got %s", email, claims.Email)
	}
	if claims.ID != jti {
		t.Errorf("Expected JTI %s in claims, got %s", jti, claims.ID)
	}
}

func TestExtractJTI(t *testing.T) {
	svc := newTestService()

	token, jti, err := svc.GenerateToken(1, "reviewer@peerview.aero")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	extracted, err := svc.ExtractJTI(token)
	if err != nil {
		t.Fatalf("Failed to extract JTI: %v", err)
	}
	if extracted != jti {
		t.Errorf("Expected JTI %s, got %s", jti, extracted)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	svc := NewService(&config.JWTConfig{
		Expiration:        -1 * time.Hour, // Already expired
		RefreshExpiration: 168 * time.Hour,
	})

	token, _, err := svc.GenerateToken(1, "reviewer@peerview.aero")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateForeignToken(t *testing.T) {
	// Each service without a configured secret generates its own key pair,
	// so a token minted by one must not validate against another.
	issuer := newTestService()
	verifier := newTestService()

	token, _, err := issuer.GenerateToken(1, "reviewer@peerview.aero")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := verifier.ValidateToken(token); err == nil {
		t.Error("Should reject token signed with a different key")
	}
}

func TestGenerateRefreshToken(t *testing.T) {
	svc := newTestService()

	token, jti, err := svc.GenerateRefreshToken(3, "admin@peerview.aero")
	if err != nil {
		t.Fatalf("Failed to generate refresh token: %v", err)
	}
	if token == "" || jti == "" {
		t.Fatal("Refresh token and JTI should not be empty")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate refresh token: %v", err)
	}
	if claims.UserID != 3 {
		t.Errorf("Expected user ID 3, got %d", claims.UserID)
	}
}

func TestRandomToken(t *testing.T) {
	token1, err := RandomToken(32)
	if err != nil {
		t.Fatalf("Failed to generate random token: %v", err)
	}
	if token1 == "" {
		t.Error("Token should not be empty")
	}

	token2, err := RandomToken(32)
	if err != nil {
		t.Fatalf("Failed to generate second random token: %v", err)
	}
	if token1 == token2 {
		t.Error("Random tokens should be different")
	}
}
