package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateUsername(t *testing.T) {
	valid := []string{"bob", "alice_99", "some-user", "ABC", strings.Repeat("a", 20)}
	for _, name := range valid {
		if err := ValidateUsername(name); err != nil {
			t.Errorf("expected %q to be valid, got %v", name, err)
		}
	}

	invalid := []string{"", "ab", strings.Repeat("a", 21), "has space", "semi;colon", "ünïcode", "dot.name"}
	for _, name := range invalid {
		if err := ValidateUsername(name); !errors.Is(err, ErrInvalidUsername) {
			t.Errorf("expected %q to be invalid, got %v", name, err)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("secret1"); err != nil {
		t.Errorf("expected valid password, got %v", err)
	}
	if err := ValidatePassword("123456"); err != nil {
		t.Errorf("expected 6-char password to be valid, got %v", err)
	}
	if err := ValidatePassword("short"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("expected short password to be invalid, got %v", err)
	}
	if err := ValidatePassword(""); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("expected empty password to be invalid, got %v", err)
	}
}

func TestHashPasswordNotPlaintext(t *testing.T) {
	hash, err := hashPassword("secret1")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if hash == "secret1" || strings.Contains(hash, "secret1") {
		t.Fatal("hash must not contain the plaintext password")
	}
	if !checkPassword(hash, "secret1") {
		t.Error("expected hash to match original password")
	}
	if checkPassword(hash, "secret2") {
		t.Error("expected hash not to match a different password")
	}
}

func TestHashPasswordSalted(t *testing.T) {
	h1, err := hashPassword("secret1")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	h2, err := hashPassword("secret1")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if h1 == h2 {
		t.Error("expected two hashes of the same password to differ (salt)")
	}
}
