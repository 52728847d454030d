package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if strings.Contains(hash, "correct horse") {
		t.Fatal("hash contains plaintext")
	}

	ok, rehash := CheckPassword(hash, "correct horse")
	if !ok || rehash {
		t.Errorf("expected match without rehash, got ok=%v rehash=%v", ok, rehash)
	}
	if ok, _ := CheckPassword(hash, "wrong"); ok {
		t.Error("expected mismatch")
	}
}

func TestHashPassword_Salted(t *testing.T) {
	a, _ := HashPassword("same", bcrypt.MinCost)
	b, _ := HashPassword("same", bcrypt.MinCost)
	if a == b {
		t.Error("expected different hashes for the same password")
	}
}

func TestCheckPassword_Legacy(t *testing.T) {
	sum := sha256.Sum256([]byte("admin123"))
	legacy := hex.EncodeToString(sum[:])

	if !IsLegacyHash(legacy) {
		t.Fatal("expected legacy hash detection")
	}
	ok, rehash := CheckPassword(legacy, "admin123")
	if !ok || !rehash {
		t.Errorf("expected legacy match needing rehash, got ok=%v rehash=%v", ok, rehash)
	}
	if ok, _ := CheckPassword(strings.ToUpper(legacy), "admin123"); !ok {
		t.Error("expected uppercase hex digest to match")
	}
	if ok, _ := CheckPassword(legacy, "admin124"); ok {
		t.Error("expected legacy mismatch")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); err == nil {
		t.Error("expected short password to fail")
	}
	if err := ValidatePassword("long enough"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
