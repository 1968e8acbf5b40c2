package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestNewPasswordService_CostRange(t *testing.T) {
	for _, cost := range []int{0, 3, 32} {
		if _, err := NewPasswordService(cost); err == nil {
			t.Errorf("NewPasswordService(%d) should fail", cost)
		}
	}
	if _, err := NewPasswordService(12); err != nil {
		t.Errorf("NewPasswordService(12) error = %v", err)
	}
}

func TestHash_OutputLooksBcrypt(t *testing.T) {
	ps := NewPasswordServiceForTest()

	hash, err := ps.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("Hash() does not look like a bcrypt hash: %q", hash)
	}
}

func TestHash_SaltIsRandom(t *testing.T) {
	ps := NewPasswordServiceForTest()

	hash1, _ := ps.Hash("same-password")
	hash2, _ := ps.Hash("same-password")

	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for the same password")
	}
}

func TestHash_LengthLimit(t *testing.T) {
	ps := NewPasswordServiceForTest()

	if _, err := ps.Hash(strings.Repeat("a", 73)); err == nil {
		t.Error("Hash() should reject passwords longer than 72 bytes")
	}
	if _, err := ps.Hash(strings.Repeat("a", 72)); err != nil {
		t.Errorf("Hash() should accept a 72-byte password, got error: %v", err)
	}
}

func TestVerify(t *testing.T) {
	ps := NewPasswordServiceForTest()
	hash, err := ps.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if err := ps.Verify(hash, "correct-horse"); err != nil {
		t.Errorf("Verify() correct password: %v", err)
	}
	if err := ps.Verify(hash, "wrong-horse"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("Verify() wrong password = %v, want ErrInvalidPassword", err)
	}
	if err := ps.Verify(hash, ""); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("Verify() empty password = %v, want ErrInvalidPassword", err)
	}

	err = ps.Verify("not-a-valid-bcrypt-hash", "password")
	if err == nil || errors.Is(err, ErrInvalidPassword) {
		t.Errorf("Verify() garbage hash = %v, want a non-mismatch error", err)
	}
}

func TestHashVerify_RoundTrip(t *testing.T) {
	ps := NewPasswordServiceForTest()

	cases := []struct {
		name     string
		password string
	}{
		{"minimum length", "abcdef"},
		{"special characters", "p@$$w0rd!#%"},
		{"unicode", "пароль-密码"},
		{"whitespace", "  leading and trailing  "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hash, err := ps.Hash(tc.password)
			if err != nil {
				t.Fatalf("Hash(%q) error = %v", tc.password, err)
			}
			if err := ps.Verify(hash, tc.password); err != nil {
				t.Errorf("Verify() failed for %q: %v", tc.password, err)
			}
		})
	}
}
