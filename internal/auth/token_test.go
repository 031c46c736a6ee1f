package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/coindash/coindash-server/internal/apperrors"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	token, err := svc.Issue("alice")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	username, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if username != "alice" {
		t.Errorf("expected username alice, got %q", username)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	svc := NewService("test-secret", -time.Minute)

	token, err := svc.Issue("alice")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	_, err = svc.Verify(token)
	if !errors.Is(err, apperrors.ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.Verify(token); !errors.Is(err, apperrors.ErrTokenMalformed) {
			t.Errorf("token %q: expected malformed error, got %v", token, err)
		}
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewService("secret-one", time.Hour)
	verifier := NewService("secret-two", time.Hour)

	token, err := issuer.Issue("alice")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, apperrors.ErrTokenMalformed) {
		t.Fatalf("expected malformed error for wrong secret, got %v", err)
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	token, err := svc.Issue("alice")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	tampered := []byte(token)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	if _, err := svc.Verify(string(tampered)); err == nil {
		t.Fatal("tampered token verified successfully")
	}
}
