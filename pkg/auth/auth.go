// Package auth verifies bearer tokens and yields the caller identity.
// Token issuance lives outside this system; only verification happens
// here.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
}

// Verifier validates HMAC-signed JWTs carrying the user id in the
// subject claim.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// VerifyHeader extracts and verifies the token from an Authorization
// header value.
func (v *Verifier) VerifyHeader(header string) (*Identity, error) {
	if header == "" {
		return nil, ErrMissingToken
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, ErrMissingToken
	}

	return v.Verify(token)
}

// Verify validates the token signature and expiry and returns the
// identity from its subject claim.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}

		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return nil, fmt.Errorf("%w: missing subject claim", ErrInvalidToken)
	}

	return &Identity{UserID: subject}, nil
}

// Sign issues a token for a user id. Used by tests and local tooling;
// production issuance is external.
func (v *Verifier) Sign(userID string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
