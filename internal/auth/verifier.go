package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"chatrelay/pkg/interfaces"
)

// Claims carries the registered claims plus the user identifier the CRUD
// layer's token issuer puts in the subject.
type Claims struct {
	jwt.RegisteredClaims
}

// Verifier validates HS256-signed bearer tokens. The relay never issues
// tokens; it only checks signature and expiry and extracts the subject.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a token verifier with the shared signing secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Verify checks the token and returns its subject.
func (v *Verifier) Verify(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", interfaces.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return "", interfaces.ErrInvalidToken
	}

	return claims.Subject, nil
}
