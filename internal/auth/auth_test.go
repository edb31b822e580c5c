package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueVerify(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)

	token, expires, err := iss.Issue(42)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Errorf("expires = %v, want future", expires)
	}

	got, err := iss.Verify(token)
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if got != 42 {
		t.Errorf("Verify() = %d, want 42", got)
	}
}

func TestVerifyRejects(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)
	token, _, err := iss.Issue(7)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	expired := NewIssuer("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue(7)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	tests := []struct {
		name   string
		issuer *Issuer
		token  string
	}{
		{"wrong secret", NewIssuer("other-secret", time.Hour), token},
		{"expired", iss, old},
		{"garbage", iss, "not-a-token"},
		{"empty", iss, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.issuer.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword() failed: %v", err)
	}
	if !CheckPassword(hash, "password123") {
		t.Error("CheckPassword() rejected the right password")
	}
	if CheckPassword(hash, "password124") {
		t.Error("CheckPassword() accepted a wrong password")
	}
}
