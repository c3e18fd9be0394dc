package auth

import (
	"errors"
	"testing"
)

func TestHashPIN(t *testing.T) {
	tests := []struct {
		name    string
		pin     string
		wantErr bool
	}{
		{"valid", "1234", false},
		{"valid with whitespace", " 0000 ", false},
		{"too short", "123", true},
		{"too long", "12345", true},
		{"letters", "12ab", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := HashPIN(tt.pin)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPIN) {
					t.Fatalf("HashPIN(%q) = %v, want ErrInvalidPIN", tt.pin, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("HashPIN(%q) error = %v", tt.pin, err)
			}
			if len(h) != 64 {
				t.Errorf("hash length = %d, want 64 hex chars", len(h))
			}
		})
	}
}

func TestHashPIN_Deterministic(t *testing.T) {
	a, _ := HashPIN("1234")
	b, _ := HashPIN("1234")
	c, _ := HashPIN("4321")
	if a != b {
		t.Error("same PIN should hash identically")
	}
	if a == c {
		t.Error("different PINs should hash differently")
	}
}

func TestVerifyPIN(t *testing.T) {
	hash, err := HashPIN("1234")
	if err != nil {
		t.Fatalf("HashPIN() error = %v", err)
	}

	if !VerifyPIN("1234", hash) {
		t.Error("VerifyPIN(correct) = false, want true")
	}
	if VerifyPIN("4321", hash) {
		t.Error("VerifyPIN(wrong) = true, want false")
	}
	if VerifyPIN("12ab", hash) {
		t.Error("VerifyPIN(malformed) = true, want false")
	}
	if VerifyPIN("1234", "not-a-hash") {
		t.Error("VerifyPIN against garbage hash = true, want false")
	}
}
