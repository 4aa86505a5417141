package validator

import (
	"strings"
	"testing"
)

type registration struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	Name     string `validate:"required"`
}

func TestValidateStructValid(t *testing.T) {
	r := registration{Email: "user@example.com", Password: "supersecret", Name: "Jane"}
	if err := ValidateStruct(&r); err != nil {
		t.Errorf("Expected valid struct, got error: %v", err)
	}
}

func TestValidateStructMissingRequired(t *testing.T) {
	r := registration{Email: "user@example.com", Password: "supersecret"}
	err := ValidateStruct(&r)
	if err == nil {
		t.Fatal("Expected error for missing required field")
	}
	if !strings.Contains(err.Error(), "Name") {
		t.Errorf("Expected error to name the field, got: %v", err)
	}
}

func TestValidateStructBadEmail(t *testing.T) {
	r := registration{Email: "not-an-email", Password: "supersecret", Name: "Jane"}
	if err := ValidateStruct(&r); err == nil {
		t.Error("Expected error for invalid email")
	}
}

func TestValidateStructShortPassword(t *testing.T) {
	r := registration{Email: "user@example.com", Password: "short", Name: "Jane"}
	if err := ValidateStruct(&r); err == nil {
		t.Error("Expected error for short password")
	}
}

func TestValidateEmail(t *testing.T) {
	if err := ValidateEmail("user@example.com"); err != nil {
		t.Errorf("Expected valid email, got: %v", err)
	}
	if err := ValidateEmail(""); err == nil {
		t.Error("Expected error for empty email")
	}
	if err := ValidateEmail("invalid"); err == nil {
		t.Error("Expected error for malformed email")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("longenough"); err != nil {
		t.Errorf("Expected valid password, got: %v", err)
	}
	if err := ValidatePassword("short"); err == nil {
		t.Error("Expected error for short password")
	}
	if err := ValidatePassword(""); err == nil {
		t.Error("Expected error for empty password")
	}
}

func TestSanitizeEmail(t *testing.T) {
	got := SanitizeEmail("  User@Example.COM\x00 ")
	if got != "user@example.com" {
		t.Errorf("Expected normalized email, got %q", got)
	}
}
