package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chatrelay/pkg/interfaces"
)

// signToken mirrors what the platform's token issuer produces.
func signToken(t *testing.T, subject string, secret []byte, validity time.Duration) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestVerifier_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	tok := signToken(t, "user-123", secret, time.Hour)

	subject, err := NewVerifier(secret).Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if subject != "user-123" {
		t.Fatalf("subject mismatch: got %q want %q", subject, "user-123")
	}
}

func TestVerifier_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok := signToken(t, "u1", secret, -1*time.Second)

	_, err := NewVerifier(secret).Verify(tok)
	if err != interfaces.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifier_WrongSecret(t *testing.T) {
	t.Parallel()

	tok := signToken(t, "u2", []byte("right-secret"), time.Hour)

	_, err := NewVerifier([]byte("wrong-secret")).Verify(tok)
	if err != interfaces.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for bad signature, got %v", err)
	}
}

func TestVerifier_Malformed(t *testing.T) {
	t.Parallel()

	_, err := NewVerifier([]byte("k")).Verify("not.a.jwt")
	if err != interfaces.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for malformed token, got %v", err)
	}
}

func TestVerifier_MissingSubject(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := NewVerifier(secret).Verify(signed); err != interfaces.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for empty subject, got %v", err)
	}
}
