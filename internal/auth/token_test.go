package auth

import (
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	m := NewTokenManager("test-secret", 5*time.Minute)

	token, err := m.Issue("user_123")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	got, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if got != "user_123" {
		t.Fatalf("subject mismatch: got %s", got)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	m := NewTokenManager("test-secret", 5*time.Minute)
	other := NewTokenManager("other-secret", 5*time.Minute)

	token, err := m.Issue("user_123")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := other.Verify(token); err == nil {
		t.Fatal("Verify succeeded with the wrong secret")
	}
}

func TestVerifyExpired(t *testing.T) {
	m := NewTokenManager("test-secret", -time.Minute)

	token, err := m.Issue("user_123")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Verify(token); err == nil {
		t.Fatal("Verify succeeded for an expired token")
	}
}

func TestVerifyGarbage(t *testing.T) {
	m := NewTokenManager("test-secret", 5*time.Minute)
	if _, err := m.Verify("not-a-token"); err == nil {
		t.Fatal("Verify succeeded for garbage input")
	}
}
